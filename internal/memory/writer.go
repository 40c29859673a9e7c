package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
)

const (
	DefaultWriteTimeout = 250 * time.Millisecond
	DefaultQueueSize    = 256
	DefaultWorkers      = 2
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("memory writer closed")

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("memory write queue full")

// WriterOptions configures a Writer.
type WriterOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Bus       *bus.Bus
}

// WriterStats are cumulative counters.
type WriterStats struct {
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Retried int64 `json:"retried"`
}

// Writer persists records asynchronously. Failures are logged, counted and
// published, never returned to the submitter.
type Writer struct {
	store   Store
	timeout time.Duration
	bus     *bus.Bus

	queue  chan Record
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
	retried atomic.Int64
}

// NewWriter starts the worker goroutines.
func NewWriter(store Store, opts WriterOptions) *Writer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWriteTimeout
	}
	w := &Writer{
		store:   store,
		timeout: opts.Timeout,
		bus:     opts.Bus,
		queue:   make(chan Record, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Submit enqueues rec without blocking.
func (w *Writer) Submit(rec Record) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- rec:
		return nil
	default:
		w.dropped.Add(1)
		log.Debug().Str("owner", rec.Owner).Msg("memory write queue full, dropping record")
		return ErrQueueFull
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

// Stats returns the current counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Written: w.written.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
		Retried: w.retried.Load(),
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		w.write(rec)
	}
}

func (w *Writer) write(rec Record) {
	err := w.attempt(rec)
	if err != nil {
		w.retried.Add(1)
		err = w.attempt(rec)
	}

	if err != nil {
		w.failed.Add(1)
		log.Debug().Err(err).Str("owner", rec.Owner).Str("session", rec.SessionID).Msg("memory write failed")
		ev := bus.NewEvent(bus.EventMemoryWriteFailed).WithSession(rec.SessionID, rec.Persona).WithError(err)
		ev.Owner = rec.Owner
		w.bus.Publish(ev)
		return
	}

	w.written.Add(1)
	ev := bus.NewEvent(bus.EventMemoryWritten).WithSession(rec.SessionID, rec.Persona)
	ev.Owner = rec.Owner
	ev.Emotion = rec.EmotionLabel
	ev.Importance = rec.Importance
	w.bus.Publish(ev)
}

func (w *Writer) attempt(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.store.Store(ctx, rec)
}
