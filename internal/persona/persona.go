package persona

import (
	"fmt"
	"sort"
	"sync"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/dispatch"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/suggest"
)

// Persona is the strategy the pipeline runs a turn through. It is built once
// from a Config and is safe for concurrent use.
type Persona struct {
	cfg        Config
	classifier *classify.Classifier
	bank       *dispatch.TemplateBank
	dispatcher *dispatch.Dispatcher
	filter     *Filter
}

// New builds a Persona from its configuration.
func New(cfg Config) (*Persona, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	classifier := classify.Builtin()[cfg.Domain]
	if err := classifier.Validate(); err != nil {
		return nil, fmt.Errorf("persona %q: %w", cfg.Name, err)
	}

	bank, err := dispatch.NewTemplateBank(cfg.Name, cfg.Templates, cfg.Fallback)
	if err != nil {
		return nil, err
	}

	filter, err := NewFilter(cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("persona %q: %w", cfg.Name, err)
	}

	return &Persona{
		cfg:        cfg,
		classifier: classifier,
		bank:       bank,
		dispatcher: bank.Dispatcher(),
		filter:     filter,
	}, nil
}

// Name returns the persona key.
func (p *Persona) Name() string { return p.cfg.Name }

// Config returns a copy of the persona configuration.
func (p *Persona) Config() Config { return p.cfg.Clone() }

// Domain returns the classifier domain.
func (p *Persona) Domain() string { return p.cfg.Domain }

// Categories lists the categories the persona's classifier can emit.
func (p *Persona) Categories() []classify.Category { return p.classifier.Categories() }

// Classify runs the persona's category classifier.
func (p *Persona) Classify(text string) classify.Result {
	return p.classifier.Classify(text)
}

// DefaultClassification is the classification reported on fallback.
func (p *Persona) DefaultClassification() classify.Result {
	return p.classifier.DefaultResult()
}

// Render produces the raw (unfiltered) response for a request.
func (p *Persona) Render(req dispatch.Request) (string, error) {
	req.Persona = p.cfg.Name
	return p.dispatcher.Dispatch(req)
}

// Provider exposes the persona's template bank.
func (p *Persona) Provider() dispatch.TemplateProvider { return p.bank }

// Suggestions returns the persona's suggestion pool.
func (p *Persona) Suggestions() suggest.Set { return p.cfg.Suggestions }

// SuggestionsFor is a convenience wrapper over a suggest.Generator.
func (p *Persona) SuggestionsFor(g *suggest.Generator, e emotion.Emotion, c classify.Category) []string {
	return g.Generate(p.cfg.Suggestions, e, c)
}

// Filter returns the persona's output filter.
func (p *Persona) Filter() *Filter { return p.filter }

// Registry holds the available personas by name.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]*Persona
	fallback string
}

// NewRegistry creates a registry with the built-in personas. The named
// default persona answers requests for unknown names.
func NewRegistry(defaultName string) (*Registry, error) {
	r := &Registry{personas: make(map[string]*Persona), fallback: defaultName}
	for _, cfg := range Builtin() {
		if err := r.Add(cfg); err != nil {
			return nil, err
		}
	}
	if _, ok := r.personas[defaultName]; !ok {
		return nil, fmt.Errorf("default persona %q is not registered", defaultName)
	}
	return r, nil
}

// Add builds and registers a persona, replacing one with the same name.
func (r *Registry) Add(cfg Config) error {
	p, err := New(cfg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personas[p.Name()] = p
	return nil
}

// Get returns the named persona, or the default when name is unknown.
func (r *Registry) Get(name string) *Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.personas[name]; ok {
		return p
	}
	return r.personas[r.fallback]
}

// Lookup returns the named persona and whether it exists.
func (r *Registry) Lookup(name string) (*Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[name]
	return p, ok
}

// Names returns registered persona names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.personas))
	for n := range r.personas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the default persona name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// SetDefault makes a registered persona the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.personas[name]; !ok {
		return fmt.Errorf("default persona %q is not registered", name)
	}
	r.fallback = name
	return nil
}
