// Package emotion implements the lexicon-based emotion scoring engine used on
// every conversational turn. Scoring is pure keyword heuristics over the
// tokenized input: there is no model behind it, so the same text always
// produces the same Result.
package emotion

import (
	"math"
	"time"
)

// Emotion is one of the fixed emotion categories.
type Emotion string

const (
	Joy         Emotion = "joy"
	Excitement  Emotion = "excitement"
	Love        Emotion = "love"
	Calm        Emotion = "calm"
	Inspiration Emotion = "inspiration"
	Sadness     Emotion = "sadness"
	Fear        Emotion = "fear"
	Anxiety     Emotion = "anxiety"
	Anger       Emotion = "anger"
	Frustration Emotion = "frustration"

	// Neutral is reported when no category scored above zero.
	Neutral Emotion = "neutral"
)

// Order is the declared category order. Ties on the primary score resolve
// to the category that appears first here.
var Order = []Emotion{
	Joy, Excitement, Love, Calm, Inspiration,
	Sadness, Fear, Anxiety, Anger, Frustration,
}

// String returns the string representation of the emotion.
func (e Emotion) String() string {
	return string(e)
}

// Valid returns true if e is a declared category or Neutral.
func (e Emotion) Valid() bool {
	if e == Neutral {
		return true
	}
	for _, o := range Order {
		if o == e {
			return true
		}
	}
	return false
}

// Intensity is the ordinal band derived from the primary score.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very_high"
	IntensityExtreme  Intensity = "extreme"
)

// Rank returns the ordinal position of the band (low = 0, extreme = 4).
// Unknown values rank below low.
func (i Intensity) Rank() int {
	switch i {
	case IntensityLow:
		return 0
	case IntensityModerate:
		return 1
	case IntensityHigh:
		return 2
	case IntensityVeryHigh:
		return 3
	case IntensityExtreme:
		return 4
	default:
		return -1
	}
}

// Band maps a score to its intensity band:
//
//	[0,0.2) low, [0.2,0.4) moderate, [0.4,0.6) high,
//	[0.6,0.8) very_high, [0.8,1.0] extreme
//
// Scores outside [0,1] are clamped first.
func Band(score float64) Intensity {
	score = clamp01(score)
	switch {
	case score < 0.2:
		return IntensityLow
	case score < 0.4:
		return IntensityModerate
	case score < 0.6:
		return IntensityHigh
	case score < 0.8:
		return IntensityVeryHigh
	default:
		return IntensityExtreme
	}
}

// Flags are boolean contextual signals found in the input.
type Flags struct {
	Question    bool `json:"question"`
	Urgency     bool `json:"urgency"`
	Uncertainty bool `json:"uncertainty"`
}

// Indicators are coarse mood readings derived by word membership.
type Indicators struct {
	Energy         string `json:"energy"`          // high|moderate|low
	SocialMood     string `json:"social_mood"`     // connected|neutral|isolated
	CognitiveState string `json:"cognitive_state"` // focused|neutral|confused
}

// Result is the output of one emotion analysis.
type Result struct {
	PrimaryEmotion Emotion             `json:"primary_emotion"`
	Intensity      Intensity           `json:"intensity"`
	Confidence     float64             `json:"confidence"`
	Scores         map[Emotion]float64 `json:"category_scores"`
	Flags          Flags               `json:"contextual_flags"`
	Indicators     Indicators          `json:"mood_indicators"`
	Timestamp      time.Time           `json:"timestamp"`
}

// PrimaryScore returns the score of the primary emotion (0 for neutral).
func (r *Result) PrimaryScore() float64 {
	if r == nil || r.PrimaryEmotion == Neutral {
		return 0
	}
	return r.Scores[r.PrimaryEmotion]
}

// NeutralResult returns the all-zero default result.
func NeutralResult(at time.Time) *Result {
	scores := make(map[Emotion]float64, len(Order))
	for _, e := range Order {
		scores[e] = 0
	}
	return &Result{
		PrimaryEmotion: Neutral,
		Intensity:      IntensityLow,
		Confidence:     0,
		Scores:         scores,
		Indicators: Indicators{
			Energy:         "moderate",
			SocialMood:     "neutral",
			CognitiveState: "neutral",
		},
		Timestamp: at,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
