package persona

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/dispatch"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/suggest"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestBuiltin_AllBuild(t *testing.T) {
	for _, cfg := range Builtin() {
		p, err := New(cfg)
		require.NoError(t, err, "persona %s", cfg.Name)
		assert.Equal(t, cfg.Name, p.Name())
	}
}

func TestBuiltin_EveryCategoryRenders(t *testing.T) {
	for _, cfg := range Builtin() {
		p, err := New(cfg)
		require.NoError(t, err)

		classifier := classify.Builtin()[cfg.Domain]
		for _, category := range classifier.Categories() {
			req := dispatch.Request{
				Text: "hello",
				Classification: classify.Result{
					Domain:          cfg.Domain,
					PrimaryCategory: category,
					Priority:        classifier.Priority.Default,
				},
				Emotion: emotion.NeutralResult(fixedTime),
				Hints:   []string{"your garden"},
			}
			out, err := p.Render(req)
			require.NoError(t, err, "%s/%s", cfg.Name, category)
			assert.NotEmpty(t, strings.TrimSpace(out), "%s/%s", cfg.Name, category)
		}
	}
}

func TestCaregiver_Crisis(t *testing.T) {
	p, err := New(caregiver())
	require.NoError(t, err)

	c := p.Classify("it's an emergency")
	assert.Equal(t, classify.CrisisIntervention, c.PrimaryCategory)
	assert.Equal(t, classify.PriorityCritical, c.Priority)

	out, err := p.Render(dispatch.Request{Text: "it's an emergency", Classification: c})
	require.NoError(t, err)
	assert.Contains(t, out, "emergency")
}

func TestFilter_Idempotent(t *testing.T) {
	f, err := NewFilter(Style{
		Prefix:        "[Security]",
		Signature:     "Stay safe.",
		Substitutions: []Substitution{{From: "hacker", To: "unauthorized party"}},
	})
	require.NoError(t, err)

	inputs := []string{
		"A hacker tried to log in.",
		"[Security] already prefixed",
		"HACKER hacker hackers",
		"plain",
	}
	for _, in := range inputs {
		once := f.Apply(in)
		assert.Equal(t, once, f.Apply(once), "input %q", in)
	}
	assert.Equal(t, "[Security] A unauthorized party tried to log in. Stay safe.", f.Apply(inputs[0]))
}

func TestFilter_PreservesEmptiness(t *testing.T) {
	f, err := NewFilter(Style{Prefix: "Hi!", Signature: "Bye."})
	require.NoError(t, err)
	assert.Equal(t, "", f.Apply(""))
	assert.Equal(t, "  ", f.Apply("  "))

	var nilFilter *Filter
	assert.Equal(t, "x", nilFilter.Apply("x"))
}

func TestStyle_ValidateRejectsNonIdempotent(t *testing.T) {
	tests := []Style{
		{Substitutions: []Substitution{{From: "bad", To: "very bad"}}},
		{Substitutions: []Substitution{{From: "a", To: "b"}, {From: "b", To: "c"}}},
		{Prefix: "bad news:", Substitutions: []Substitution{{From: "bad", To: "rough"}}},
		{Substitutions: []Substitution{{From: "", To: "x"}}},
	}
	for _, s := range tests {
		assert.Error(t, s.Validate())
		_, err := NewFilter(s)
		assert.Error(t, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := companion()
	require.NoError(t, cfg.Validate())

	cfg.Name = ""
	cfg.Domain = "astrology"
	cfg.Fallback = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "unknown domain")
	assert.Contains(t, err.Error(), "fallback")
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := companion()
	clone := cfg.Clone()
	clone.Templates[classify.Greeting][0] = "changed"
	clone.Suggestions.ByEmotion[emotion.Sadness][0] = "changed"

	assert.NotEqual(t, "changed", cfg.Templates[classify.Greeting][0])
	assert.NotEqual(t, "changed", cfg.Suggestions.ByEmotion[emotion.Sadness][0])
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(NameCompanion)
	require.NoError(t, err)

	assert.Equal(t, []string{NameCaregiver, NameCoach, NameCompanion, NameGuardian}, r.Names())
	assert.Equal(t, NameCompanion, r.Get("nobody").Name())

	p, ok := r.Lookup(NameGuardian)
	require.True(t, ok)
	assert.Equal(t, "auth", p.Domain())

	_, err = NewRegistry("missing")
	assert.Error(t, err)

	require.NoError(t, r.SetDefault(NameCoach))
	assert.Equal(t, NameCoach, r.Default())
	assert.Equal(t, NameCoach, r.Get("nobody").Name())
	assert.Error(t, r.SetDefault("missing"))
	assert.Equal(t, NameCoach, r.Default())

	care, ok := r.Lookup(NameCaregiver)
	require.True(t, ok)
	assert.Contains(t, care.Categories(), classify.CrisisIntervention)
}

func TestPersona_Suggestions(t *testing.T) {
	p, err := New(companion())
	require.NoError(t, err)

	got := p.SuggestionsFor(suggest.NewGenerator(nil, nil), emotion.Sadness, classify.Venting)
	require.Len(t, got, 3)
	assert.Equal(t, "Write down one thing that went okay today", got[0])
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	custom := `
name: mentor
display_name: Ada
domain: companion
style:
  prefix: "Mentor:"
templates:
  goal_setting:
    - "Great goal. What's step one?"
fallback:
  - "Go on."
suggestions:
  by_category:
    goal_setting:
      - "Write it down"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mentor.yaml"), []byte(custom), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	configs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[0]
	assert.Equal(t, "mentor", cfg.Name)
	assert.Equal(t, []string{"Write it down"}, cfg.Suggestions.ByCategory[classify.GoalSetting])

	p, err := New(cfg)
	require.NoError(t, err)
	out, err := p.Render(dispatch.Request{
		Text:           "my goal",
		Classification: p.Classify("my goal"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Great goal. What's step one?", out)
	assert.Equal(t, "Mentor: Great goal. What's step one?", p.Filter().Apply(out))
}

func TestLoadDir_MissingAndInvalid(t *testing.T) {
	configs, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, configs)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("name: x\ndomain: nope\n"), 0644))
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yml")
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "coach.yaml")
	require.NoError(t, coach().SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, coach().Templates, loaded.Templates)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
