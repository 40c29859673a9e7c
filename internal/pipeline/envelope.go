package pipeline

import (
	"encoding/json"
	"time"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
)

// TurnContext is the optional caller context of one turn.
type TurnContext struct {
	Mood        string             `json:"mood,omitempty" yaml:"mood,omitempty"`
	EmotionData map[string]float64 `json:"emotion_data,omitempty" yaml:"emotion_data,omitempty"`
	MemoryHints []string           `json:"memory_hints,omitempty" yaml:"memory_hints,omitempty"`
	SessionID   string             `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Persona     string             `json:"persona,omitempty" yaml:"persona,omitempty"`
}

// Classification is the classification metadata returned with a response.
// Emotion and category are reported side by side and never reconciled.
type Classification struct {
	classify.Result
	Intent    string            `json:"intent"`
	Emotion   emotion.Emotion   `json:"emotion"`
	Intensity emotion.Intensity `json:"intensity"`
	Flags     emotion.Flags     `json:"flags"`
}

// Envelope is the response to one turn.
type Envelope struct {
	Text           string         `json:"text"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime time.Duration  `json:"-"`
	Suggestions    []string       `json:"suggestions"`
	ErrorFlag      bool           `json:"error_flag"`

	Persona   string `json:"persona"`
	SessionID string `json:"session_id"`
	MoodState string `json:"mood_state"`
}

// MarshalJSON adds processing_time_ms.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	return json.Marshal(struct {
		alias
		ProcessingTimeMs int64 `json:"processing_time_ms"`
	}{alias(e), e.ProcessingTime.Milliseconds()})
}
