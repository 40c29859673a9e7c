package classify

// Companion categories.
const (
	GoalSetting     Category = "goal_setting"
	PersonalSharing Category = "personal_sharing"
	Gratitude       Category = "gratitude"
	SeekingAdvice   Category = "seeking_advice"
	Venting         Category = "venting"
	Greeting        Category = "greeting"
	General         Category = "general"
)

// Care categories.
const (
	CrisisIntervention Category = "crisis_intervention"
	MedicationSupport  Category = "medication_support"
	EmotionalSupport   Category = "emotional_support"
	DailyLiving        Category = "daily_living"
	Companionship      Category = "companionship"
	GeneralCare        Category = "general_care"
)

// Auth helper categories.
const (
	AccountLockout     Category = "account_lockout"
	SuspiciousActivity Category = "suspicious_activity"
	PasswordReset      Category = "password_reset"
	TwoFactor          Category = "two_factor"
	LoginHelp          Category = "login_help"
	GeneralSecurity    Category = "general_security"
)

// Communication coach categories.
const (
	ConflictResolution    Category = "conflict_resolution"
	DifficultConversation Category = "difficult_conversation"
	PublicSpeaking        Category = "public_speaking"
	Feedback              Category = "feedback"
	Negotiation           Category = "negotiation"
	GeneralCommunication  Category = "general_communication"
)

// Priority labels shared across domains.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

var greetingWords = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"howdy", "greetings", "what's up", "hiya",
}

// Companion classifies general life-companion conversation.
func Companion() *Classifier {
	return &Classifier{
		Domain: "companion",
		Primary: Waterfall[Category]{
			Rules: []Rule[Category]{
				WordRule(GoalSetting, "goal", "goals", "plan", "planning", "achieve",
					"resolution", "target", "milestone", "want to become", "working towards"),
				WordRule(PersonalSharing, "my day", "i feel", "i'm feeling", "today i",
					"happened", "my family", "my friend", "my life", "i remember", "let me tell you"),
				WordRule(Gratitude, "thank", "thanks", "thank you", "grateful", "appreciate",
					"thankful"),
				WordRule(SeekingAdvice, "advice", "should i", "what should", "how do i",
					"how can i", "recommend", "suggest", "help me decide", "any tips"),
				WordRule(Venting, "ugh", "sick of", "fed up", "so annoyed", "hate",
					"can't stand", "need to vent", "rant", "tired of"),
				WordRule(Greeting, greetingWords...),
			},
			Default: General,
		},
		Priority: Waterfall[Priority]{
			Rules: []Rule[Priority]{
				WordRule(PriorityHigh, "urgent", "asap", "immediately", "emergency",
					"right now", "important"),
				WordRule(PriorityLow, "whenever", "no rush", "just wondering",
					"by the way", "someday"),
			},
			Default: PriorityNormal,
		},
	}
}

// Care classifies conversation for a caregiving companion.
func Care() *Classifier {
	return &Classifier{
		Domain: "care",
		Primary: Waterfall[Category]{
			Rules: []Rule[Category]{
				WordRule(CrisisIntervention, "emergency", "crisis", "suicide",
					"hurt myself", "fell", "can't breathe", "chest pain", "ambulance", "911"),
				WordRule(MedicationSupport, "medication", "medicine", "pill", "pills",
					"dose", "dosage", "prescription", "pharmacy", "refill"),
				WordRule(EmotionalSupport, "sad", "lonely", "depressed", "anxious",
					"scared", "worried", "upset", "grieving", "overwhelmed"),
				WordRule(DailyLiving, "meal", "meals", "cooking", "bath", "shower",
					"dressing", "groceries", "cleaning", "appointment", "schedule"),
				WordRule(Companionship, "talk", "chat", "company", "visit",
					"story", "stories", "remember when", "keep me company"),
				WordRule(Greeting, greetingWords...),
			},
			Default: GeneralCare,
		},
		Priority: Waterfall[Priority]{
			Rules: []Rule[Priority]{
				WordRule(PriorityCritical, "emergency", "crisis", "suicide", "can't breathe",
					"chest pain", "ambulance", "911"),
				WordRule(PriorityHigh, "urgent", "pain", "fell", "missed dose",
					"immediately", "asap"),
				WordRule(PriorityMedium, "soon", "today", "worried", "medication"),
			},
			Default: PriorityLow,
		},
		Attributes: map[string]Waterfall[string]{
			"scope": {
				Rules: []Rule[string]{
					WordRule("professional", "doctor", "nurse", "caregiver", "therapist",
						"clinic", "hospital"),
					WordRule("family", "mom", "dad", "mother", "father", "daughter",
						"son", "wife", "husband", "grandchild", "family"),
				},
				Default: "self",
			},
		},
	}
}

// Auth classifies account and sign-in help requests.
func Auth() *Classifier {
	return &Classifier{
		Domain: "auth",
		Primary: Waterfall[Category]{
			Rules: []Rule[Category]{
				WordRule(AccountLockout, "locked out", "locked", "lockout",
					"account disabled", "suspended", "blocked"),
				WordRule(SuspiciousActivity, "suspicious", "hacked", "unauthorized",
					"strange login", "unknown device", "phishing", "compromised", "breach"),
				WordRule(PasswordReset, "password", "reset", "forgot", "forgotten",
					"change my password"),
				WordRule(TwoFactor, "2fa", "two factor", "two-factor", "mfa",
					"authenticator", "verification code", "otp", "sms code"),
				WordRule(LoginHelp, "login", "log in", "sign in", "signin",
					"can't access", "cannot access", "username"),
				WordRule(Greeting, greetingWords...),
			},
			Default: GeneralSecurity,
		},
		Priority: Waterfall[Priority]{
			Rules: []Rule[Priority]{
				WordRule(PriorityHigh, "hacked", "unauthorized", "compromised", "breach",
					"stolen", "suspicious", "phishing"),
				WordRule(PriorityMedium, "locked", "lockout", "2fa", "mfa", "reset",
					"forgot", "can't access"),
			},
			Default: PriorityLow,
		},
	}
}

// Communication classifies interpersonal communication coaching requests.
func Communication() *Classifier {
	return &Classifier{
		Domain: "communication",
		Primary: Waterfall[Category]{
			Rules: []Rule[Category]{
				WordRule(ConflictResolution, "conflict", "argument", "arguing", "fight",
					"fighting", "disagreement", "resolve", "tension"),
				WordRule(DifficultConversation, "difficult conversation", "hard conversation",
					"bad news", "break up", "confront", "tell them", "awkward"),
				WordRule(PublicSpeaking, "presentation", "speech", "public speaking",
					"present", "audience", "stage fright", "talk in front"),
				WordRule(Feedback, "feedback", "criticism", "review", "critique",
					"performance review"),
				WordRule(Negotiation, "negotiate", "negotiation", "raise", "salary",
					"offer", "deal", "bargain"),
				WordRule(Greeting, greetingWords...),
			},
			Default: GeneralCommunication,
		},
		Priority: Waterfall[Priority]{
			Rules: []Rule[Priority]{
				WordRule(PriorityHigh, "tomorrow", "today", "tonight", "urgent",
					"asap", "in an hour", "right now"),
			},
			Default: PriorityNormal,
		},
		Attributes: map[string]Waterfall[string]{
			"channel": {
				Rules: []Rule[string]{
					WordRule("online", "zoom", "video call", "teams", "slack", "online",
						"chat", "virtual"),
					WordRule("written", "email", "e-mail", "letter", "text message",
						"message", "write", "writing"),
				},
				Default: "in_person",
			},
		},
	}
}

// Builtin returns the shipped classifiers keyed by domain.
func Builtin() map[string]*Classifier {
	out := make(map[string]*Classifier, 4)
	for _, c := range []*Classifier{Companion(), Care(), Auth(), Communication()} {
		out[c.Domain] = c
	}
	return out
}
