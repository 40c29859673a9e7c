// Package bus provides the in-process event bus that turn processing and the
// memory writer publish to. Subscribers such as the metrics collector and the
// websocket hub consume events asynchronously.
package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event.
type EventType string

const (
	// A turn completed normally.
	EventTurnProcessed EventType = "turn_processed"
	// A turn was answered by the fallback envelope.
	EventTurnFallback EventType = "turn_fallback"

	EventMemoryWritten     EventType = "memory_written"
	EventMemoryWriteFailed EventType = "memory_write_failed"

	// Idle sessions were reaped by the janitor.
	EventSessionsReaped EventType = "sessions_reaped"
)

// Event is a single bus message. Fields not relevant to a type stay empty.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	SessionID string `json:"session_id,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Persona   string `json:"persona,omitempty"`

	Emotion    string  `json:"emotion,omitempty"`
	Intensity  string  `json:"intensity,omitempty"`
	Category   string  `json:"category,omitempty"`
	MoodState  string  `json:"mood_state,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Importance int     `json:"importance,omitempty"`
	Count      int     `json:"count,omitempty"`

	DurationMs int64  `json:"duration_ms,omitempty"`
	Details    string `json:"details,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(t EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      t,
	}
}

// WithSession sets the session and persona.
func (e Event) WithSession(sessionID, persona string) Event {
	e.SessionID = sessionID
	e.Persona = persona
	return e
}

// WithError records err on the event.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// String returns a short human-readable form.
func (e Event) String() string {
	switch e.Type {
	case EventTurnProcessed, EventTurnFallback:
		return fmt.Sprintf("[%s] session=%s persona=%s emotion=%s category=%s (%dms)",
			e.Type, e.SessionID, e.Persona, e.Emotion, e.Category, e.DurationMs)
	case EventMemoryWriteFailed:
		return fmt.Sprintf("[%s] owner=%s: %s", e.Type, e.Owner, e.Error)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, e.Details)
	}
}
