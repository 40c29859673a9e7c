package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps records in process, newest last per owner.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     map[string][]Record
	maxPerOwner int
}

// NewInMemoryStore creates an in-process store.
func NewInMemoryStore(maxPerOwner int) *InMemoryStore {
	if maxPerOwner <= 0 {
		maxPerOwner = DefaultMaxPerOwner
	}
	return &InMemoryStore{records: make(map[string][]Record), maxPerOwner: maxPerOwner}
}

// Store appends rec, evicting the owner's oldest record when full.
func (s *InMemoryStore) Store(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Content.Keywords = append([]string(nil), rec.Content.Keywords...)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.records[rec.Owner], rec)
	if len(list) > s.maxPerOwner {
		list = list[len(list)-s.maxPerOwner:]
	}
	s.records[rec.Owner] = list
	return nil
}

// Recall returns up to limit records, most recent first.
func (s *InMemoryStore) Recall(ctx context.Context, owner string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.records[owner]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Len returns the number of records held for owner.
func (s *InMemoryStore) Len(owner string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[owner])
}
