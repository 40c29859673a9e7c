// Package metrics aggregates turn and memory events from the bus into
// counters served by the HTTP API and rendered by the CLI.
package metrics

import (
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
)

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	StartTime time.Time `json:"start_time"`

	Turns          int   `json:"turns"`
	Fallbacks      int   `json:"fallbacks"`
	TotalLatencyMs int64 `json:"total_latency_ms"`

	MemoryWrites   int `json:"memory_writes"`
	MemoryFailures int `json:"memory_failures"`
	SessionsReaped int `json:"sessions_reaped"`

	ByEmotion  map[string]int `json:"by_emotion"`
	ByCategory map[string]int `json:"by_category"`
	ByPersona  map[string]int `json:"by_persona"`
	ByMood     map[string]int `json:"by_mood"`

	LastEvent     string    `json:"last_event"`
	LastEventTime time.Time `json:"last_event_time"`
}

// AvgLatencyMs returns the mean turn latency.
func (s Snapshot) AvgLatencyMs() float64 {
	if s.Turns == 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.Turns)
}

// FallbackRate returns the share of turns answered by the fallback envelope.
func (s Snapshot) FallbackRate() float64 {
	if s.Turns == 0 {
		return 0
	}
	return float64(s.Fallbacks) / float64(s.Turns)
}

// Collector subscribes to the bus and aggregates counters.
type Collector struct {
	bus          *bus.Bus
	store        *Store
	stats        Snapshot
	recentEvents []bus.Event
	maxEvents    int
	sub          bus.SubscriptionID
	stopped      bool
	mu           sync.RWMutex
}

// NewCollector creates a collector. store may be nil.
func NewCollector(b *bus.Bus, store *Store) *Collector {
	return &Collector{
		bus:   b,
		store: store,
		stats: Snapshot{
			StartTime:  time.Now(),
			ByEmotion:  make(map[string]int),
			ByCategory: make(map[string]int),
			ByPersona:  make(map[string]int),
			ByMood:     make(map[string]int),
		},
		recentEvents: make([]bus.Event, 0, 50),
		maxEvents:    50,
	}
}

// Start begins listening to the bus.
func (c *Collector) Start() {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.sub != "" {
		return
	}
	c.sub = c.bus.Subscribe(bus.EventType(""), c.handleEvent)
}

// Stop stops listening.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.sub != "" && c.bus != nil {
		_ = c.bus.Unsubscribe(c.sub)
	}
	c.sub = ""
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.ByEmotion = maps.Clone(c.stats.ByEmotion)
	s.ByCategory = maps.Clone(c.stats.ByCategory)
	s.ByPersona = maps.Clone(c.stats.ByPersona)
	s.ByMood = maps.Clone(c.stats.ByMood)
	return s
}

// RecentEvents returns up to n of the most recent events, oldest first.
func (c *Collector) RecentEvents(n int) []bus.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n = max(min(n, len(c.recentEvents)), 0)
	events := make([]bus.Event, n)
	copy(events, c.recentEvents[len(c.recentEvents)-n:])
	return events
}

// Observe applies an event directly. The bus subscription calls it; tests
// and the replay command use it without a bus.
func (c *Collector) Observe(event bus.Event) {
	c.handleEvent(event)
}

func (c *Collector) handleEvent(event bus.Event) {
	c.mu.Lock()
	c.recentEvents = append(c.recentEvents, event)
	if len(c.recentEvents) > c.maxEvents {
		c.recentEvents = c.recentEvents[1:]
	}

	s := &c.stats
	s.LastEvent = string(event.Type)
	s.LastEventTime = event.Timestamp

	switch event.Type {
	case bus.EventTurnProcessed, bus.EventTurnFallback:
		s.Turns++
		s.TotalLatencyMs += event.DurationMs
		if event.Type == bus.EventTurnFallback {
			s.Fallbacks++
		}
		if event.Emotion != "" {
			s.ByEmotion[event.Emotion]++
		}
		if event.Category != "" {
			s.ByCategory[event.Category]++
		}
		if event.Persona != "" {
			s.ByPersona[event.Persona]++
		}
		if event.MoodState != "" {
			s.ByMood[event.MoodState]++
		}
	case bus.EventMemoryWritten:
		s.MemoryWrites++
	case bus.EventMemoryWriteFailed:
		s.MemoryFailures++
	case bus.EventSessionsReaped:
		s.SessionsReaped += event.Count
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Record(event); err != nil {
			log.Debug().Err(err).Str("event", string(event.Type)).Msg("failed to persist metric")
		}
	}
}
