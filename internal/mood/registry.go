package mood

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry owns one Tracker per session key. Turns for the same session are
// serialized through Lock; different sessions never contend beyond the map
// lookup.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	capacity int
	now      func() time.Time
}

type session struct {
	tracker *Tracker
	turn    sync.Mutex
}

// NewRegistry creates an empty registry whose trackers hold capacity results.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		sessions: make(map[string]*session),
		capacity: capacity,
		now:      time.Now,
	}
}

func (r *Registry) getOrCreate(key string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := &session{tracker: NewTrackerWithCapacity(r.capacity)}
	r.sessions[key] = s
	return s
}

// Tracker returns the tracker for key, creating it on first use.
func (r *Registry) Tracker(key string) *Tracker {
	return r.getOrCreate(key).tracker
}

// Lock acquires the per-session turn lock and returns the session's tracker
// with the release func. The tracker is the one Reap cannot remove while the
// lock is held, so callers push to it rather than looking the key up again.
func (r *Registry) Lock(key string) (*Tracker, func()) {
	return r.lock(key, r.getOrCreate(key))
}

// lock waits for s's turn lock and retries on the live session when s was
// reaped while we waited.
func (r *Registry) lock(key string, s *session) (*Tracker, func()) {
	for {
		s.turn.Lock()

		r.mu.Lock()
		cur, ok := r.sessions[key]
		if ok && cur == s {
			r.mu.Unlock()
			return s.tracker, s.turn.Unlock
		}
		if !ok {
			cur = &session{tracker: NewTrackerWithCapacity(r.capacity)}
			r.sessions[key] = cur
		}
		r.mu.Unlock()

		s.turn.Unlock()
		s = cur
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions returns the live session keys in sorted order.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reap drops sessions idle for longer than olderThan and returns how many
// were removed. Sessions with a turn in flight are skipped.
func (r *Registry) Reap(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, s := range r.sessions {
		if !s.tracker.LastSeen().Before(cutoff) {
			continue
		}
		if !s.turn.TryLock() {
			continue
		}
		delete(r.sessions, key)
		s.turn.Unlock()
		removed++
	}

	if removed > 0 {
		log.Debug().
			Int("removed", removed).
			Int("remaining", len(r.sessions)).
			Dur("idle_after", olderThan).
			Msg("reaped idle mood sessions")
	}
	return removed
}
