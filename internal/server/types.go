// Package server exposes the turn pipeline over HTTP and a websocket chat
// endpoint.
package server

import (
	"time"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/metrics"
	"github.com/normanking/empath/internal/persona"
	"github.com/normanking/empath/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════════════════════════
// API REQUEST / RESPONSE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// TurnRequest is the request body for POST /api/v1/turn.
type TurnRequest struct {
	Text    string               `json:"text"`
	UserRef string               `json:"user_ref,omitempty"`
	Context pipeline.TurnContext `json:"context"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
	Sessions  int       `json:"sessions"`
}

// PersonaInfo summarizes one persona.
type PersonaInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Domain      string   `json:"domain"`
	Categories  []string `json:"categories"`
	Default     bool     `json:"default"`
}

// PersonaDetail is returned by GET /api/v1/personas/{name}.
type PersonaDetail struct {
	PersonaInfo
	Style       persona.Style `json:"style"`
	Suggestions int           `json:"suggestions"`
}

// PersonasResponse is returned by GET /api/v1/personas.
type PersonasResponse struct {
	Personas []PersonaInfo `json:"personas"`
	Default  string        `json:"default"`
}

// MetricsResponse is returned by GET /api/metrics.
type MetricsResponse struct {
	Timestamp    string           `json:"timestamp"`
	Snapshot     metrics.Snapshot `json:"snapshot"`
	AvgLatencyMs float64          `json:"avg_latency_ms"`
	FallbackRate float64          `json:"fallback_rate"`
	Recent       []bus.Event      `json:"recent,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// WEBSOCKET MESSAGES
// ═══════════════════════════════════════════════════════════════════════════════

// WSMessageType identifies websocket frames.
type WSMessageType string

const (
	WSTurn     WSMessageType = "turn"
	WSPing     WSMessageType = "ping"
	WSSession  WSMessageType = "session"
	WSEnvelope WSMessageType = "envelope"
	WSPong     WSMessageType = "pong"
	WSError    WSMessageType = "error"
)

// WSMessage is a client frame.
type WSMessage struct {
	Type        WSMessageType      `json:"type"`
	Text        string             `json:"text,omitempty"`
	Persona     string             `json:"persona,omitempty"`
	Mood        string             `json:"mood,omitempty"`
	MemoryHints []string           `json:"memory_hints,omitempty"`
	EmotionData map[string]float64 `json:"emotion_data,omitempty"`
}

// WSReply is a server frame.
type WSReply struct {
	Type      WSMessageType      `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	Envelope  *pipeline.Envelope `json:"envelope,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// API ERROR TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// APIError represents a structured API error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Common API errors.
var (
	ErrNotFound        = &APIError{Code: 404, Message: "not found"}
	ErrBadRequest      = &APIError{Code: 400, Message: "bad request"}
	ErrTooLarge        = &APIError{Code: 413, Message: "input too large"}
	ErrMetricsDisabled = &APIError{Code: 503, Message: "metrics not enabled"}
)

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details string) *APIError {
	c := *e
	c.Details = details
	return &c
}
