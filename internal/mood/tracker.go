// Package mood tracks the aggregate emotional state of a session over a
// bounded window of recent emotion results.
package mood

import (
	"sync"
	"time"

	"github.com/normanking/empath/internal/emotion"
)

// State is the aggregate mood of a session.
type State string

const (
	StatePositive State = "positive"
	StateNegative State = "negative"
	StateAgitated State = "agitated"
	StatePeaceful State = "peaceful"
	StateNeutral  State = "neutral"
)

const (
	// DefaultCapacity is the number of results a tracker retains.
	DefaultCapacity = 10

	// VoteWindow is how many of the most recent results take part in the vote.
	VoteWindow = 3
)

// StateFor maps a single emotion to its mood state.
func StateFor(e emotion.Emotion) State {
	switch e {
	case emotion.Joy, emotion.Excitement, emotion.Love, emotion.Inspiration:
		return StatePositive
	case emotion.Sadness, emotion.Fear, emotion.Anxiety:
		return StateNegative
	case emotion.Anger, emotion.Frustration:
		return StateAgitated
	case emotion.Calm:
		return StatePeaceful
	default:
		return StateNeutral
	}
}

// Transition records a change of aggregate state.
type Transition struct {
	From      State           `json:"from"`
	To        State           `json:"to"`
	Trigger   emotion.Emotion `json:"trigger"`
	Timestamp time.Time       `json:"timestamp"`
}

// Tracker is a bounded FIFO of emotion results for one session.
type Tracker struct {
	mu          sync.RWMutex
	entries     []*emotion.Result
	capacity    int
	state       State
	transitions []Transition
	lastSeen    time.Time
}

// NewTracker creates a tracker with the default capacity.
func NewTracker() *Tracker {
	return NewTrackerWithCapacity(DefaultCapacity)
}

// NewTrackerWithCapacity creates a tracker holding at most capacity results.
// Non-positive capacities fall back to DefaultCapacity.
func NewTrackerWithCapacity(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		entries:     make([]*emotion.Result, 0, capacity),
		capacity:    capacity,
		state:       StateNeutral,
		transitions: make([]Transition, 0, capacity),
		lastSeen:    time.Now(),
	}
}

// Push appends a result, evicting the oldest entry when full, and returns the
// recomputed aggregate state. A nil result is ignored.
func (t *Tracker) Push(r *emotion.Result) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSeen = time.Now()
	if r == nil {
		return t.state
	}

	t.entries = append(t.entries, r)
	if len(t.entries) > t.capacity {
		t.entries = t.entries[1:]
	}

	next := vote(t.entries)
	if next != t.state {
		t.transitions = append(t.transitions, Transition{
			From:      t.state,
			To:        next,
			Trigger:   r.PrimaryEmotion,
			Timestamp: t.lastSeen,
		})
		if len(t.transitions) > t.capacity {
			t.transitions = t.transitions[1:]
		}
		t.state = next
	}
	return t.state
}

// State returns the current aggregate state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Len returns the number of retained results.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// History returns the retained results, oldest first.
func (t *Tracker) History() []*emotion.Result {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*emotion.Result, len(t.entries))
	copy(out, t.entries)
	return out
}

// Transitions returns recent state changes, oldest first.
func (t *Tracker) Transitions() []Transition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

// LastSeen returns when the tracker last received a push.
func (t *Tracker) LastSeen() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeen
}

// vote takes a majority over the primary emotions of the last VoteWindow
// entries. Ties go to whichever tied emotion occurred most recently.
func vote(entries []*emotion.Result) State {
	if len(entries) == 0 {
		return StateNeutral
	}

	window := entries[max(len(entries)-VoteWindow, 0):]
	counts := make(map[emotion.Emotion]int, len(window))
	lastIdx := make(map[emotion.Emotion]int, len(window))
	for i, r := range window {
		counts[r.PrimaryEmotion]++
		lastIdx[r.PrimaryEmotion] = i
	}

	var winner emotion.Emotion
	best, bestIdx := -1, -1
	for e, c := range counts {
		if c > best || (c == best && lastIdx[e] > bestIdx) {
			winner, best, bestIdx = e, c, lastIdx[e]
		}
	}
	return StateFor(winner)
}
