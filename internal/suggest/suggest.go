// Package suggest produces short follow-up suggestions for a turn.
package suggest

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
)

// MaxSuggestions bounds every generated list.
const MaxSuggestions = 3

// Set is a persona's own suggestion pool.
type Set struct {
	ByEmotion  map[emotion.Emotion][]string   `yaml:"by_emotion" json:"by_emotion"`
	ByCategory map[classify.Category][]string `yaml:"by_category" json:"by_category"`
}

// DefaultBase is the shared pool used after persona suggestions run out.
var DefaultBase = []string{
	"Tell me more about how you're feeling",
	"Would it help to talk through your options?",
	"Want to take a short breathing break together?",
	"Should we set a small goal for today?",
}

// Generator assembles suggestions from a persona set and the base pool.
// Candidates are ordered as the persona's entries for the emotion, then its
// entries for the category, then the base pool. Case-insensitive duplicates
// keep their first position and the list is cut at the limit. With a random
// source the persona entries and the base pool are each shuffled, but
// persona suggestions still precede base ones.
type Generator struct {
	base  []string
	limit int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng keeps output deterministic.
func NewGenerator(base []string, rng *rand.Rand) *Generator {
	if base == nil {
		base = DefaultBase
	}
	return &Generator{base: base, limit: MaxSuggestions, rng: rng}
}

// Generate returns at most MaxSuggestions unique suggestions.
func (g *Generator) Generate(set Set, e emotion.Emotion, c classify.Category) []string {
	persona := make([]string, 0, 6)
	persona = append(persona, set.ByEmotion[e]...)
	persona = append(persona, set.ByCategory[c]...)
	base := append([]string(nil), g.base...)

	if g.rng != nil {
		g.mu.Lock()
		g.shuffle(persona)
		g.shuffle(base)
		g.mu.Unlock()
	}

	out := make([]string, 0, g.limit)
	seen := make(map[string]bool, g.limit)
	for _, s := range append(persona, base...) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
		if len(out) == g.limit {
			break
		}
	}
	return out
}

func (g *Generator) shuffle(s []string) {
	g.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
