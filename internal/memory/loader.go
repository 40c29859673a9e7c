package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultRecallLimit   = 10
	DefaultRecallTimeout = 150 * time.Millisecond
	topKeywords          = 5
	topIntents           = 3
)

// Extra is the caller-supplied context merged into a bundle.
type Extra struct {
	Mood  string
	Hints []string
}

// Preferences are derived from recalled records.
type Preferences struct {
	TopIntents  []string `json:"top_intents,omitempty"`
	TopKeywords []string `json:"top_keywords,omitempty"`
	Persona     string   `json:"persona,omitempty"`
}

// Bundle is the context assembled for one turn.
type Bundle struct {
	Records     []Record    `json:"records,omitempty"`
	Preferences Preferences `json:"preferences"`
	LastEmotion string      `json:"last_emotion,omitempty"`
	Hints       []string    `json:"hints,omitempty"`
}

// ContextLoader recalls recent records for an owner under a short timeout.
type ContextLoader struct {
	store   Store
	limit   int
	timeout time.Duration
}

// NewContextLoader creates a loader. Zero limit or timeout use the defaults.
func NewContextLoader(store Store, limit int, timeout time.Duration) *ContextLoader {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	if timeout <= 0 {
		timeout = DefaultRecallTimeout
	}
	return &ContextLoader{store: store, limit: limit, timeout: timeout}
}

// Load assembles the bundle for owner. Recall failures are logged and yield
// a bundle built from extra alone.
func (l *ContextLoader) Load(ctx context.Context, owner, sessionID string, extra Extra) Bundle {
	b := Bundle{
		LastEmotion: extra.Mood,
		Hints:       append([]string(nil), extra.Hints...),
	}
	if l == nil || l.store == nil {
		return b
	}

	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	records, err := l.store.Recall(rctx, owner, l.limit)
	if err != nil {
		log.Debug().Err(err).Str("owner", owner).Str("session", sessionID).Msg("memory recall failed")
		return b
	}
	if len(records) > l.limit {
		records = records[:l.limit]
	}

	b.Records = records
	b.Preferences = derivePreferences(records)
	if b.LastEmotion == "" && len(records) > 0 {
		b.LastEmotion = records[0].EmotionLabel
	}
	return b
}

func derivePreferences(records []Record) Preferences {
	intents := newTally()
	keywords := newTally()
	personas := newTally()
	for _, r := range records {
		intents.add(r.Content.Intent)
		for _, k := range r.Content.Keywords {
			keywords.add(k)
		}
		personas.add(r.Persona)
	}
	p := Preferences{
		TopIntents:  intents.top(topIntents),
		TopKeywords: keywords.top(topKeywords),
	}
	if top := personas.top(1); len(top) == 1 {
		p.Persona = top[0]
	}
	return p
}

// tally counts values and remembers first-seen order for ties. Records
// arrive newest first, so ties favor the most recent.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(v string) {
	if v == "" {
		return
	}
	if _, ok := t.counts[v]; !ok {
		t.order = append(t.order, v)
	}
	t.counts[v]++
}

func (t *tally) top(n int) []string {
	out := append([]string(nil), t.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return t.counts[out[i]] > t.counts[out[j]]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
