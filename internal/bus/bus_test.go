package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew(t *testing.T) {
	b := New()
	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.historySize != DefaultHistorySize {
		t.Errorf("Expected history size %d, got %d", DefaultHistorySize, b.historySize)
	}
	b.Close()
}

func TestSubscribeAndPublish(t *testing.T) {
	b := New()
	defer b.Close()

	done := make(chan Event, 1)
	id := b.Subscribe(EventTurnProcessed, func(e Event) { done <- e })
	if id == "" {
		t.Fatal("Subscribe returned empty ID")
	}

	event := NewEvent(EventTurnProcessed).WithSession("s1", "companion")
	event.Emotion = "joy"
	if err := b.Publish(event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-done:
		if got.SessionID != "s1" || got.Emotion != "joy" {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for event")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	callCount := atomic.Int32{}
	id := b.Subscribe(EventTurnProcessed, func(e Event) { callCount.Add(1) })

	b.Publish(NewEvent(EventTurnProcessed))
	time.Sleep(100 * time.Millisecond)

	if err := b.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	b.Publish(NewEvent(EventTurnProcessed))
	time.Sleep(100 * time.Millisecond)

	if callCount.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", callCount.Load())
	}
	if err := b.Unsubscribe("sub_missing"); err == nil {
		t.Error("Expected error unsubscribing unknown ID")
	}
}

func TestTypedAndWildcardSubscriptions(t *testing.T) {
	b := New()
	defer b.Close()

	typedCount := atomic.Int32{}
	wildcardCount := atomic.Int32{}

	b.Subscribe(EventTurnFallback, func(e Event) { typedCount.Add(1) })
	b.Subscribe(EventType(""), func(e Event) { wildcardCount.Add(1) })

	b.Publish(NewEvent(EventTurnFallback))
	b.Publish(NewEvent(EventMemoryWritten))
	time.Sleep(100 * time.Millisecond)

	if typedCount.Load() != 1 {
		t.Errorf("Typed subscriber expected 1 call, got %d", typedCount.Load())
	}
	if wildcardCount.Load() != 2 {
		t.Errorf("Wildcard subscriber expected 2 calls, got %d", wildcardCount.Load())
	}
}

func TestHistory(t *testing.T) {
	b := NewWithHistory(5)
	defer b.Close()

	for i := 0; i < 10; i++ {
		e := NewEvent(EventTurnProcessed)
		e.Count = i
		b.Publish(e)
	}

	history := b.History()
	if len(history) != 5 {
		t.Fatalf("Expected 5 events in history, got %d", len(history))
	}
	if history[0].Count != 5 || history[4].Count != 9 {
		t.Errorf("Expected oldest events evicted, got first=%d last=%d", history[0].Count, history[4].Count)
	}

	recent := b.Recent(3)
	if len(recent) != 3 || recent[2].Count != 9 {
		t.Errorf("Unexpected recent slice: %+v", recent)
	}
	if len(b.Recent(100)) != 5 {
		t.Error("Recent should cap at history length")
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	received := atomic.Int32{}
	for i := 0; i < 10; i++ {
		b.Subscribe(EventTurnProcessed, func(e Event) { received.Add(1) })
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(NewEvent(EventTurnProcessed))
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for received.Load() < 500 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if received.Load() != 500 {
		t.Errorf("Expected 500 deliveries, got %d", received.Load())
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New()
	b.Subscribe(EventTurnProcessed, func(Event) {})
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := b.Publish(NewEvent(EventTurnProcessed)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if id := b.Subscribe(EventTurnProcessed, func(Event) {}); id != "" {
		t.Error("Expected empty ID after close")
	}
	if err := b.Close(); !errors.Is(err, ErrClosed) {
		t.Error("Expected error on double close")
	}
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	if err := b.Publish(NewEvent(EventTurnProcessed)); err != nil {
		t.Errorf("nil bus publish should be a no-op, got %v", err)
	}
}
