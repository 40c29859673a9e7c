package dispatch

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"text/template"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
)

// TemplateData is the value templates are executed against.
type TemplateData struct {
	Text       string
	Category   string
	Priority   string
	Attributes map[string]string
	Emotion    string
	Intensity  string
	Mood       string
	Hints      []string
	Persona    string

	// LastEmotion is empty when nothing was recalled or the owner was
	// last neutral.
	LastEmotion string
	Topics      []string
	Intents     []string
	Returning   bool
}

// TemplateBank holds the parsed response variants of one persona.
type TemplateBank struct {
	name      string
	templates map[classify.Category][]*template.Template
	fallback  []*template.Template
	funcMap   template.FuncMap
}

// NewTemplateBank parses the variants for each category and the fallback
// variants used for categories without their own.
func NewTemplateBank(name string, variants map[classify.Category][]string, fallback []string) (*TemplateBank, error) {
	b := &TemplateBank{
		name:      name,
		templates: make(map[classify.Category][]*template.Template, len(variants)),
	}
	b.funcMap = template.FuncMap{
		"join":  strings.Join,
		"lower": strings.ToLower,
		"first": func(s []string) string {
			if len(s) == 0 {
				return ""
			}
			return s[0]
		},
		"humanize": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
	}

	for category, texts := range variants {
		parsed, err := b.parseAll(string(category), texts)
		if err != nil {
			return nil, err
		}
		b.templates[category] = parsed
	}

	parsed, err := b.parseAll("fallback", fallback)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("persona %s: at least one fallback template is required", name)
	}
	b.fallback = parsed
	return b, nil
}

func (b *TemplateBank) parseAll(key string, texts []string) ([]*template.Template, error) {
	out := make([]*template.Template, 0, len(texts))
	for i, text := range texts {
		t, err := template.New(fmt.Sprintf("%s/%s/%d", b.name, key, i)).
			Funcs(b.funcMap).
			Option("missingkey=zero").
			Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s template %d for persona %s: %w", key, i, b.name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Categories returns the categories with their own variants, sorted.
func (b *TemplateBank) Categories() []classify.Category {
	out := make([]classify.Category, 0, len(b.templates))
	for c := range b.templates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render implements TemplateProvider.
func (b *TemplateBank) Render(category classify.Category, result classify.Result, raw string) (string, error) {
	result.PrimaryCategory = category
	return b.Execute(Request{Text: raw, Classification: result, Persona: b.name})
}

// Execute renders the request's category, or the fallback bank.
func (b *TemplateBank) Execute(req Request) (string, error) {
	variants, ok := b.templates[req.Category()]
	if !ok || len(variants) == 0 {
		variants = b.fallback
	}
	return b.execute(variants, req)
}

// Dispatcher builds a dispatcher with one generator per category in the
// bank, each bound to that category's variants, and the fallback bank as
// default.
func (b *TemplateBank) Dispatcher() *Dispatcher {
	d := New(b.generator(b.fallback))
	for category, variants := range b.templates {
		if len(variants) == 0 {
			continue
		}
		d.Register(category, b.generator(variants))
	}
	return d
}

func (b *TemplateBank) generator(variants []*template.Template) Generator {
	return func(req Request) (string, error) {
		return b.execute(variants, req)
	}
}

func (b *TemplateBank) execute(variants []*template.Template, req Request) (string, error) {
	t := variants[pick(req.Text, len(variants))]

	data := TemplateData{
		Text:       req.Text,
		Category:   string(req.Category()),
		Priority:   string(req.Classification.Priority),
		Attributes: req.Classification.Attributes,
		Mood:       string(req.Mood),
		Hints:      req.Hints,
		Persona:    req.Persona,
		Emotion:    string(emotion.Neutral),
		Intensity:  string(emotion.IntensityLow),
		Topics:     req.Recall.TopKeywords,
		Intents:    req.Recall.TopIntents,
		Returning:  req.Recall.Turns > 0,
	}
	if req.Emotion != nil {
		data.Emotion = string(req.Emotion.PrimaryEmotion)
		data.Intensity = string(req.Emotion.Intensity)
	}
	if last := strings.ToLower(strings.TrimSpace(req.Recall.LastEmotion)); last != string(emotion.Neutral) {
		data.LastEmotion = last
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: execute %s: %w", ErrTemplateFailure, t.Name(), err)
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", fmt.Errorf("%w: %s rendered empty", ErrTemplateFailure, t.Name())
	}
	return out, nil
}

// pick selects a variant index deterministically from the input text.
func pick(text string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return int(h.Sum32() % uint32(n))
}
