package pipeline

import (
	"time"

	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/mood"
)

// FallbackText is returned whenever a turn cannot be answered normally.
const FallbackText = "I'm sorry, something went wrong on my side while I was putting my reply together. Could you say that again?"

const (
	FallbackConfidence     = 0.5
	FallbackProcessingTime = 100 * time.Millisecond
)

// FallbackEnvelope builds the fixed envelope returned by the error handler.
func FallbackEnvelope(s Strategy, sessionID string, suggestions []string) *Envelope {
	cls := Classification{
		Emotion:   emotion.Neutral,
		Intensity: emotion.IntensityLow,
	}
	persona := ""
	if s != nil {
		cls.Result = s.DefaultClassification()
		persona = s.Name()
	}
	cls.Intent = string(cls.PrimaryCategory)
	return &Envelope{
		Text:           FallbackText,
		Classification: cls,
		Confidence:     FallbackConfidence,
		ProcessingTime: FallbackProcessingTime,
		Suggestions:    suggestions,
		ErrorFlag:      true,
		Persona:        persona,
		SessionID:      sessionID,
		MoodState:      string(mood.StateNeutral),
	}
}
