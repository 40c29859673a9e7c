package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// DefaultHistorySize is the number of recent events retained for replay.
	DefaultHistorySize = 500

	// DefaultChannelBuffer is the buffer size of each subscriber channel.
	DefaultChannelBuffer = 100
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("bus is closed")

// SubscriptionID identifies a subscription.
type SubscriptionID string

// subscriber is one registered handler draining its own queue.
type subscriber struct {
	eventType EventType // "" matches every event
	handler   func(Event)
	queue     chan Event
	stop      chan struct{}
}

func (s *subscriber) matches(t EventType) bool {
	return s.eventType == "" || s.eventType == t
}

// Bus is a thread-safe pub/sub hub with typed and wildcard subscribers and a
// bounded event history. Each subscriber runs on its own goroutine; a full
// subscriber queue drops the event for that subscriber only.
type Bus struct {
	mu     sync.RWMutex
	subs   map[SubscriptionID]*subscriber
	nextID atomic.Uint64

	historyMu   sync.RWMutex
	history     []Event
	historySize int

	dropped atomic.Int64
	quit    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// New creates a bus with the default history size.
func New() *Bus {
	return NewWithHistory(DefaultHistorySize)
}

// NewWithHistory creates a bus retaining historySize events.
func NewWithHistory(historySize int) *Bus {
	return &Bus{
		subs:        make(map[SubscriptionID]*subscriber),
		history:     make([]Event, 0, max(historySize, 0)),
		historySize: max(historySize, 0),
		quit:        make(chan struct{}),
	}
}

// Subscribe registers a handler for an event type. EventType("") subscribes
// to every event. It returns "" when the bus is closed.
func (b *Bus) Subscribe(eventType EventType, handler func(Event)) SubscriptionID {
	if handler == nil {
		return ""
	}
	sub := &subscriber{
		eventType: eventType,
		handler:   handler,
		queue:     make(chan Event, DefaultChannelBuffer),
		stop:      make(chan struct{}),
	}
	id := SubscriptionID(fmt.Sprintf("sub_%d", b.nextID.Add(1)))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return ""
	}
	b.subs[id] = sub
	b.wg.Add(1)
	go b.run(sub)
	return id
}

func (b *Bus) run(sub *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case ev := <-sub.queue:
			sub.handler(ev)
		case <-sub.stop:
			return
		case <-b.quit:
			return
		}
	}
}

// Unsubscribe removes a subscription and stops its goroutine.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	if b.closed.Load() {
		return ErrClosed
	}
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	close(sub.stop)
	return nil
}

// Publish records the event in history and delivers it to matching
// subscribers without blocking.
func (b *Bus) Publish(event Event) error {
	if b == nil {
		return nil
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.record(event)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.matches(event.Type) {
			continue
		}
		select {
		case sub.queue <- event:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *Bus) record(event Event) {
	if b.historySize == 0 {
		return
	}
	b.historyMu.Lock()
	defer b.historyMu.Unlock()
	if len(b.history) == b.historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:len(b.history)-1]
	}
	b.history = append(b.history, event)
}

// History returns a copy of the retained events, oldest first.
func (b *Bus) History() []Event {
	return b.Recent(b.historySize)
}

// Recent returns the last n events, oldest first.
func (b *Bus) Recent(n int) []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()

	n = max(min(n, len(b.history)), 0)
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// SubscriptionsCount returns the number of active subscriptions.
func (b *Bus) SubscriptionsCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were dropped on full queues.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops every subscriber goroutine and waits for them to exit.
// Events still queued are discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	if !b.closed.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return ErrClosed
	}
	close(b.quit)
	b.subs = make(map[SubscriptionID]*subscriber)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
