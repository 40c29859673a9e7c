package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/empath/internal/bus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakyStore fails the first n calls.
type flakyStore struct {
	*InMemoryStore
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyStore) Store(ctx context.Context, rec Record) error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errors.New("transient")
	}
	return f.InMemoryStore.Store(ctx, rec)
}

// blockingStore waits until released or the context expires.
type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) Store(ctx context.Context, _ Record) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingStore) Recall(context.Context, string, int) ([]Record, error) { return nil, nil }

func TestWriter_WritesAndDrainsOnClose(t *testing.T) {
	s := NewInMemoryStore(0)
	w := NewWriter(s, WriterOptions{Workers: 3})

	for i := 0; i < 50; i++ {
		require.NoError(t, w.Submit(rec("alice", "x", i)))
	}
	w.Close()

	assert.Equal(t, 50, s.Len("alice"))
	assert.EqualValues(t, 50, w.Stats().Written)
	assert.ErrorIs(t, w.Submit(rec("alice", "late", 0)), ErrWriterClosed)

	// second close is harmless
	w.Close()
}

func TestWriter_RetriesOnce(t *testing.T) {
	f := &flakyStore{InMemoryStore: NewInMemoryStore(0)}
	f.failures.Store(1)

	w := NewWriter(f, WriterOptions{Workers: 1})
	require.NoError(t, w.Submit(rec("alice", "x", 0)))
	w.Close()

	assert.Equal(t, 1, f.Len("alice"))
	assert.EqualValues(t, 2, f.calls.Load())
	st := w.Stats()
	assert.EqualValues(t, 1, st.Written)
	assert.EqualValues(t, 1, st.Retried)
	assert.Zero(t, st.Failed)
}

func TestWriter_FailurePublishedNotSurfaced(t *testing.T) {
	b := bus.New()
	defer b.Close()

	var mu sync.Mutex
	var got []bus.Event
	b.Subscribe("", func(e bus.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	w := NewWriter(failingStore{err: errors.New("down")}, WriterOptions{Workers: 1, Bus: b})
	r := rec("alice", "x", 0)
	require.NoError(t, w.Submit(r))
	w.Close()

	assert.EqualValues(t, 1, w.Stats().Failed)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, bus.EventMemoryWriteFailed, got[0].Type)
	assert.Equal(t, "alice", got[0].Owner)
	assert.Equal(t, "down", got[0].Error)
}

func TestWriter_TimeoutCountsAsFailure(t *testing.T) {
	s := &blockingStore{release: make(chan struct{})}
	w := NewWriter(s, WriterOptions{Workers: 1, Timeout: 10 * time.Millisecond})

	require.NoError(t, w.Submit(rec("alice", "x", 0)))
	w.Close()

	st := w.Stats()
	assert.EqualValues(t, 1, st.Failed)
	assert.EqualValues(t, 1, st.Retried)
}

func TestWriter_SubmitNeverBlocks(t *testing.T) {
	s := &blockingStore{release: make(chan struct{})}
	w := NewWriter(s, WriterOptions{Workers: 1, QueueSize: 1, Timeout: time.Minute})

	// one record in flight, one queued, the rest dropped
	var dropped int
	for i := 0; i < 10; i++ {
		if errors.Is(w.Submit(rec("alice", "x", i)), ErrQueueFull) {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 8)
	assert.EqualValues(t, dropped, w.Stats().Dropped)

	close(s.release)
	w.Close()
}
