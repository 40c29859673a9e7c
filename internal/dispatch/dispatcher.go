// Package dispatch routes a classified turn to the response generator
// registered for its category.
package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/mood"
)

// ErrTemplateFailure is returned when a generator fails or renders nothing.
var ErrTemplateFailure = errors.New("template failure")

// Request carries everything a generator may use to build a response.
type Request struct {
	Text           string
	Classification classify.Result
	Emotion        *emotion.Result
	Mood           mood.State
	Hints          []string
	Persona        string
	Recall         Recall
}

// Recall is what the context loader remembered about the owner before this
// turn.
type Recall struct {
	// LastEmotion is the caller-supplied prior mood or the emotion of the
	// newest recalled record.
	LastEmotion string
	TopIntents  []string
	TopKeywords []string
	// Turns is the number of records recalled.
	Turns int
}

// Category returns the primary category of the request.
func (r Request) Category() classify.Category {
	return r.Classification.PrimaryCategory
}

// Generator builds the response text for a request.
type Generator func(Request) (string, error)

// TemplateProvider renders a persona's response bank.
type TemplateProvider interface {
	Render(category classify.Category, result classify.Result, raw string) (string, error)
}

// ProviderGenerator adapts a TemplateProvider to a Generator.
func ProviderGenerator(p TemplateProvider) Generator {
	return func(req Request) (string, error) {
		return p.Render(req.Category(), req.Classification, req.Text)
	}
}

// Dispatcher is a registered table of category generators.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[classify.Category]Generator
	fallback Generator
}

// New creates a dispatcher whose unmatched categories use def.
func New(def Generator) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[classify.Category]Generator),
		fallback: def,
	}
}

// Register binds a generator to a category, replacing any previous one.
func (d *Dispatcher) Register(category classify.Category, gen Generator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[category] = gen
}

// Has reports whether a category has its own generator.
func (d *Dispatcher) Has(category classify.Category) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[category]
	return ok
}

// Dispatch runs the generator for the request's category, or the default.
// The returned text is never empty when err is nil.
func (d *Dispatcher) Dispatch(req Request) (string, error) {
	d.mu.RLock()
	gen, ok := d.handlers[req.Category()]
	if !ok {
		gen = d.fallback
	}
	d.mu.RUnlock()

	if gen == nil {
		return "", fmt.Errorf("%w: no generator for %q", ErrTemplateFailure, req.Category())
	}

	text, err := gen(req)
	if err != nil {
		if errors.Is(err, ErrTemplateFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrTemplateFailure, req.Category(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response for %q", ErrTemplateFailure, req.Category())
	}
	return text, nil
}
