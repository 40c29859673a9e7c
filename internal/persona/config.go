// Package persona defines the agent personas: their immutable configuration,
// their output filter, and the strategy object the pipeline runs against.
package persona

import (
	"errors"
	"fmt"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/suggest"
)

// Config is the static description of one persona. It is loaded once at
// startup (built-in or YAML) and never mutated afterwards.
type Config struct {
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Domain selects the category classifier (companion, care, auth,
	// communication).
	Domain string `yaml:"domain" json:"domain"`

	Style Style `yaml:"style" json:"style"`

	// Templates maps a category to its response variants (text/template).
	Templates map[classify.Category][]string `yaml:"templates" json:"templates"`
	// Fallback variants answer categories without their own templates.
	Fallback []string `yaml:"fallback" json:"fallback"`

	Suggestions suggest.Set `yaml:"suggestions" json:"suggestions"`
}

// Style controls the persona filter.
type Style struct {
	Prefix        string         `yaml:"prefix" json:"prefix"`
	Signature     string         `yaml:"signature" json:"signature"`
	Substitutions []Substitution `yaml:"substitutions" json:"substitutions"`
}

// Substitution replaces whole-word occurrences of From with To.
type Substitution struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Validate checks that the configuration can be turned into a Persona.
func (c *Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if _, ok := classify.Builtin()[c.Domain]; !ok {
		errs = append(errs, fmt.Errorf("unknown domain %q (valid: companion, care, auth, communication)", c.Domain))
	}
	if len(c.Fallback) == 0 {
		errs = append(errs, errors.New("at least one fallback template is required"))
	}
	if err := c.Style.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persona %q: %w", c.Name, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Style.Substitutions = append([]Substitution(nil), c.Style.Substitutions...)
	out.Fallback = append([]string(nil), c.Fallback...)
	out.Templates = make(map[classify.Category][]string, len(c.Templates))
	for k, v := range c.Templates {
		out.Templates[k] = append([]string(nil), v...)
	}
	out.Suggestions = suggest.Set{
		ByEmotion:  cloneMap(c.Suggestions.ByEmotion),
		ByCategory: cloneMap(c.Suggestions.ByCategory),
	}
	return out
}

func cloneMap[K comparable](m map[K][]string) map[K][]string {
	if m == nil {
		return nil
	}
	out := make(map[K][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}
