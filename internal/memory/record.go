// Package memory persists conversation turns per owner and loads recent
// context back for the next turn.
package memory

import (
	"time"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
)

// RecordType classifies a stored record.
type RecordType string

const (
	TypeConversation RecordType = "conversation"
	TypeFallback     RecordType = "fallback"
)

// Content is the payload of a conversation record.
type Content struct {
	Input    string   `json:"input"`
	Response string   `json:"response"`
	Emotion  string   `json:"emotion"`
	Intent   string   `json:"intent"`
	Keywords []string `json:"keywords,omitempty"`
}

// Record is one append-only memory entry.
type Record struct {
	ID           string     `json:"id"`
	Type         RecordType `json:"type"`
	Content      Content    `json:"content"`
	EmotionLabel string     `json:"emotion_label"`
	Importance   int        `json:"importance"`
	Owner        string     `json:"owner"`
	SessionID    string     `json:"session_id"`
	Persona      string     `json:"persona"`
	Timestamp    time.Time  `json:"timestamp"`
}

// MaxImportance bounds ImportanceScore.
const MaxImportance = 10

var (
	salientEmotions = map[emotion.Emotion]bool{
		emotion.Excitement:  true,
		emotion.Anxiety:     true,
		emotion.Inspiration: true,
		emotion.Frustration: true,
	}
	salientCategories = map[classify.Category]bool{
		classify.GoalSetting:     true,
		classify.PersonalSharing: true,
	}
)

// ImportanceScore rates how worth recalling a turn is, in [0,10]:
//
//	3 base
//	+2 for excitement, anxiety, inspiration or frustration
//	+1 when confidence > 0.8
//	+1 for goal_setting or personal_sharing
func ImportanceScore(e emotion.Emotion, confidence float64, category classify.Category) int {
	score := 3
	if salientEmotions[e] {
		score += 2
	}
	if confidence > 0.8 {
		score++
	}
	if salientCategories[category] {
		score++
	}
	return max(0, min(score, MaxImportance))
}
