package persona

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter applies a persona's voice to generated text. Apply is idempotent.
type Filter struct {
	prefix    string
	signature string
	subs      []compiledSub
}

type compiledSub struct {
	pattern *regexp.Regexp
	to      string
}

// Validate rejects styles whose filter would not be idempotent: no
// substitution target, prefix or signature may contain any source word.
func (s Style) Validate() error {
	for _, sub := range s.Substitutions {
		if sub.From == "" {
			return fmt.Errorf("substitution with empty source")
		}
	}
	for _, sub := range s.Substitutions {
		src := wordPattern(sub.From)
		for _, other := range s.Substitutions {
			if src.MatchString(other.To) {
				return fmt.Errorf("substitution target %q contains source %q", other.To, sub.From)
			}
		}
		if src.MatchString(s.Prefix) || src.MatchString(s.Signature) {
			return fmt.Errorf("prefix or signature contains substitution source %q", sub.From)
		}
	}
	return nil
}

// NewFilter compiles a filter for the style.
func NewFilter(s Style) (*Filter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{
		prefix:    strings.TrimSpace(s.Prefix),
		signature: strings.TrimSpace(s.Signature),
	}
	for _, sub := range s.Substitutions {
		f.subs = append(f.subs, compiledSub{pattern: wordPattern(sub.From), to: sub.To})
	}
	return f, nil
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// Apply substitutes words, then adds the prefix and signature when absent.
// Empty text stays empty.
func (f *Filter) Apply(text string) string {
	if f == nil || strings.TrimSpace(text) == "" {
		return text
	}

	for _, s := range f.subs {
		text = s.pattern.ReplaceAllLiteralString(text, s.to)
	}
	if f.prefix != "" && !strings.HasPrefix(text, f.prefix) {
		text = f.prefix + " " + text
	}
	if f.signature != "" && !strings.HasSuffix(text, f.signature) {
		text = text + " " + f.signature
	}
	return text
}
