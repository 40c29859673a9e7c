package persona

import (
	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/suggest"
)

// Built-in persona names.
const (
	NameCompanion = "companion"
	NameCaregiver = "caregiver"
	NameGuardian  = "guardian"
	NameCoach     = "coach"
)

// Builtin returns the shipped persona configurations.
func Builtin() []Config {
	return []Config{companion(), caregiver(), guardian(), coach()}
}

func companion() Config {
	return Config{
		Name:        NameCompanion,
		DisplayName: "Sol",
		Description: "Everyday companion for sharing, goals and encouragement",
		Domain:      "companion",
		Style: Style{
			Substitutions: []Substitution{{From: "problem", To: "challenge"}},
		},
		Templates: map[classify.Category][]string{
			classify.Greeting: {
				"Hi there! It's good to hear from you{{if .Returning}} again{{end}}. " +
					"{{if .LastEmotion}}Last time you were carrying some {{.LastEmotion}}. How are things now?{{else}}How are you feeling today?{{end}}",
				"Hello! I'm glad you stopped by.{{if .LastEmotion}} Last time you were carrying some {{.LastEmotion}}.{{end}}" +
					"{{with first .Topics}} Are you still thinking about {{.}}?{{else}} What's on your mind?{{end}}",
			},
			classify.GoalSetting: {
				"I love that you're setting goals. Let's break it into one small step you can take this week.",
				"That's a meaningful goal. What would the first milestone look like for you?",
			},
			classify.PersonalSharing: {
				"Thank you for sharing that with me. {{if eq .Emotion \"neutral\"}}How did it leave you feeling?{{else}}It sounds like you're feeling some {{.Emotion}}.{{end}}",
				"I'm really glad you told me. Tell me more about what happened.",
			},
			classify.Gratitude: {
				"You're so welcome. It means a lot to be here for you.",
				"Anytime. I'm always happy to help.",
			},
			classify.SeekingAdvice: {
				"Let's think it through together. What options have you considered so far?",
				"Good question. What matters most to you in this decision?",
			},
			classify.Venting: {
				"That sounds really frustrating. I'm here, let it all out.",
				"I hear you. It makes sense to feel {{.Emotion}} about this.",
			},
		},
		Fallback: []string{
			"I'm here with you. {{if .Hints}}Last time you mentioned {{first .Hints}}. " +
				"{{else}}{{with first .Topics}}Last time we talked about {{.}}. {{end}}{{end}}Tell me more.",
			"I'm listening. What would help most right now?",
		},
		Suggestions: suggest.Set{
			ByEmotion: map[emotion.Emotion][]string{
				emotion.Sadness:     {"Write down one thing that went okay today", "Reach out to a friend"},
				emotion.Anxiety:     {"Try a two-minute breathing exercise", "List what is within your control"},
				emotion.Joy:         {"Savor the moment by writing it down", "Share the good news with someone"},
				emotion.Frustration: {"Take a short walk to reset", "Name exactly what is blocking you"},
			},
			ByCategory: map[classify.Category][]string{
				classify.GoalSetting:   {"Pick a deadline for the first step", "Tell me how it goes next time"},
				classify.SeekingAdvice: {"Write a pros and cons list", "Sleep on it before deciding"},
			},
		},
	}
}

func caregiver() Config {
	return Config{
		Name:        NameCaregiver,
		DisplayName: "Ruth",
		Description: "Gentle caregiving companion for older adults and their families",
		Domain:      "care",
		Style: Style{
			Signature: "Take care.",
		},
		Templates: map[classify.Category][]string{
			classify.Greeting: {
				"Hello, dear. {{if .LastEmotion}}You were feeling some {{.LastEmotion}} when we last talked. {{end}}How are you doing today?",
				"Good to hear from you{{if .Returning}} again{{end}}. Did you sleep well?",
			},
			classify.CrisisIntervention: {
				"This sounds like an emergency. Please call your local emergency number right now, or ask someone nearby to help you.",
			},
			classify.MedicationSupport: {
				"Let's make sure your medication is on track. Please check the label and, if anything is unclear, call your pharmacist or doctor.",
				"Medication matters. Would you like me to help you set a reminder?",
			},
			classify.EmotionalSupport: {
				"I'm sorry you're feeling this way. You're not alone, and I'm right here with you.",
				"That sounds hard. Would you like to tell me a little more about it?",
			},
			classify.DailyLiving: {
				"Let's take it one step at a time. What's the first thing you need for today?",
			},
			classify.Companionship: {
				"I'd love to chat. Tell me a story from when you were young.",
				"I always enjoy our talks. What's been on your mind lately?",
			},
		},
		Fallback: []string{
			"I'm here for you. {{if eq (index .Attributes \"scope\") \"family\"}}How is your family doing? {{end}}Tell me more.",
		},
		Suggestions: suggest.Set{
			ByEmotion: map[emotion.Emotion][]string{
				emotion.Sadness: {"Call a family member", "Look through some favorite photos"},
				emotion.Fear:    {"Keep a phone within reach", "Call someone you trust"},
			},
			ByCategory: map[classify.Category][]string{
				classify.CrisisIntervention: {"Call emergency services", "Contact a family member"},
				classify.MedicationSupport:  {"Set a medication reminder", "Call your pharmacist"},
			},
		},
	}
}

func guardian() Config {
	return Config{
		Name:        NameGuardian,
		DisplayName: "Sentinel",
		Description: "Calm helper for account and sign-in problems",
		Domain:      "auth",
		Style: Style{
			Prefix: "[Security]",
			Substitutions: []Substitution{
				{From: "hacker", To: "unauthorized party"},
			},
		},
		Templates: map[classify.Category][]string{
			classify.Greeting: {
				"Hello{{if .Returning}} again{{end}}. I can help with sign-in, passwords and account security.",
			},
			classify.AccountLockout: {
				"Lockouts usually clear after a short wait. Use the official recovery page to unlock your account.",
			},
			classify.SuspiciousActivity: {
				"Let's secure your account now: change your password from a trusted device and review recent sign-ins.",
			},
			classify.PasswordReset: {
				"You can reset your password from the sign-in page via \"Forgot password\". Choose a long, unique passphrase.",
			},
			classify.TwoFactor: {
				"For two-factor issues, check that your device clock is correct, or use one of your backup codes.",
			},
			classify.LoginHelp: {
				"Double-check your username and try signing in from a private window. If that fails, reset your password.",
			},
		},
		Fallback: []string{
			"I can help keep your account safe. Could you describe what you're seeing?",
		},
		Suggestions: suggest.Set{
			ByEmotion: map[emotion.Emotion][]string{
				emotion.Anxiety: {"Review recent sign-in activity", "Enable two-factor authentication"},
				emotion.Fear:    {"Change your password from a trusted device"},
			},
			ByCategory: map[classify.Category][]string{
				classify.SuspiciousActivity: {"Sign out of all other sessions", "Enable two-factor authentication"},
				classify.PasswordReset:      {"Use a password manager"},
			},
		},
	}
}

func coach() Config {
	return Config{
		Name:        NameCoach,
		DisplayName: "Harper",
		Description: "Communication coach for hard conversations, feedback and speaking",
		Domain:      "communication",
		Templates: map[classify.Category][]string{
			classify.Greeting: {
				"Hey! {{with first .Topics}}Still working on {{.}}? {{end}}Which conversation are we preparing for today?",
			},
			classify.ConflictResolution: {
				"Start by naming the shared goal, then describe the issue without blame. What outcome do you both want?",
			},
			classify.DifficultConversation: {
				"Hard conversations go better with a clear opening line. What's the one thing they need to hear?",
			},
			classify.PublicSpeaking: {
				"Nerves are normal. Practice your first thirty seconds out loud until they feel automatic.",
			},
			classify.Feedback: {
				"Try the situation, behavior, impact format: it keeps feedback specific and fair.",
			},
			classify.Negotiation: {
				"Anchor with your research and know your walk-away point before you start.",
			},
		},
		Fallback: []string{
			"Let's work on it together. Who is the conversation with, and how will it happen{{with index .Attributes \"channel\"}} ({{humanize .}}){{end}}?",
		},
		Suggestions: suggest.Set{
			ByEmotion: map[emotion.Emotion][]string{
				emotion.Anxiety: {"Rehearse your opening line", "Write down your three key points"},
				emotion.Anger:   {"Wait a day before responding", "Draft it, but don't send it yet"},
			},
			ByCategory: map[classify.Category][]string{
				classify.PublicSpeaking: {"Record yourself practicing", "Time your talk"},
				classify.Negotiation:    {"Research market rates", "Decide your walk-away point"},
			},
		},
	}
}
