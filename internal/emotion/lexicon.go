package emotion

// Lexicon holds the word lists the analyzer scores against. Entries are
// lowercase single tokens unless they contain a space, in which case they are
// matched as phrases against the lowercased text (flags and indicators only).
type Lexicon struct {
	Categories   map[Emotion][]string
	Intensifiers []string

	Urgency     []string
	Hedging     []string
	QuestionLed []string

	HighEnergy []string
	LowEnergy  []string
	Connected  []string
	Isolated   []string
	Focused    []string
	Confused   []string

	Stopwords []string
}

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Categories: map[Emotion][]string{
			Joy: {
				"happy", "glad", "joy", "joyful", "delighted", "cheerful", "excited",
				"pleased", "wonderful", "great", "good", "smile", "smiling", "yay",
				"awesome", "fantastic", "lovely",
			},
			Excitement: {
				"excited", "thrilled", "pumped", "eager", "ecstatic", "stoked",
				"hyped", "excitement", "exciting", "wow", "amazing", "psyched",
			},
			Love: {
				"love", "loving", "loved", "adore", "cherish", "caring", "affection",
				"grateful", "thankful", "sweetheart", "darling", "appreciate",
			},
			Calm: {
				"calm", "peaceful", "relaxed", "serene", "content", "tranquil",
				"chill", "rested", "steady", "balanced", "centered",
			},
			Inspiration: {
				"inspired", "motivated", "determined", "hopeful", "creative",
				"inspiring", "empowered", "driven", "ambitious", "passionate",
			},
			Sadness: {
				"sad", "unhappy", "depressed", "down", "lonely", "heartbroken",
				"miserable", "cry", "crying", "tears", "grief", "upset",
				"hopeless", "gloomy", "devastated",
			},
			Fear: {
				"scared", "afraid", "fear", "terrified", "frightened", "panic",
				"panicking", "danger", "threatened", "unsafe",
			},
			Anxiety: {
				"anxious", "worried", "worry", "nervous", "stressed", "stress",
				"uneasy", "overwhelmed", "tense", "restless", "anxiety",
			},
			Anger: {
				"angry", "mad", "furious", "rage", "hate", "outraged", "livid",
				"pissed", "resent", "hostile",
			},
			Frustration: {
				"frustrated", "frustrating", "annoyed", "annoying", "stuck",
				"irritated", "ugh", "useless", "fed", "exasperated",
			},
		},
		Intensifiers: []string{
			"extremely", "very", "really", "so", "super", "incredibly",
			"totally", "absolutely", "completely", "truly", "deeply", "utterly",
		},
		Urgency: []string{
			"urgent", "urgently", "asap", "immediately", "emergency", "hurry",
			"quickly", "critical", "now", "right away",
		},
		Hedging: []string{
			"maybe", "perhaps", "unsure", "possibly", "might", "guess",
			"probably", "not sure", "i think", "kind of", "sort of",
		},
		QuestionLed: []string{
			"what", "why", "how", "when", "where", "who", "which", "can",
			"could", "should", "would", "is", "are", "do", "does", "will",
		},
		HighEnergy: []string{
			"excited", "energized", "pumped", "thrilled", "energetic", "hyped",
			"motivated", "ready", "alive",
		},
		LowEnergy: []string{
			"tired", "exhausted", "drained", "sleepy", "fatigued", "weary",
			"burned out", "lethargic", "worn out",
		},
		Connected: []string{
			"friends", "friend", "family", "together", "partner", "team",
			"community", "we", "us",
		},
		Isolated: []string{
			"alone", "lonely", "isolated", "nobody", "ignored", "abandoned",
			"left out",
		},
		Focused: []string{
			"focused", "clear", "understand", "certain", "decided", "plan",
			"organized",
		},
		Confused: []string{
			"confused", "lost", "overwhelmed", "confusing", "puzzled",
			"don't understand", "no idea", "unclear",
		},
		Stopwords: []string{
			"the", "and", "for", "are", "but", "not", "you", "your", "with",
			"this", "that", "have", "has", "had", "was", "were", "been", "being",
			"from", "they", "them", "their", "what", "when", "where", "which",
			"who", "why", "how", "all", "any", "can", "could", "would", "should",
			"will", "just", "about", "into", "than", "then", "there", "these",
			"those", "some", "very", "really", "so", "too", "also", "its", "it's",
			"i'm", "i've", "i'll", "don't", "didn't", "doesn't", "can't", "our",
			"out", "over", "more", "most", "much", "many", "such", "only", "own",
			"same", "other", "here", "because", "while", "after", "before", "did",
			"does", "doing", "myself", "yourself", "him", "her", "his", "she",
			"its", "let", "get", "got", "feel", "feeling", "like", "know", "am",
			"extremely", "today", "now",
		},
	}
}

// wordSet is a lookup over lexicon entries split into tokens and phrases.
type wordSet struct {
	tokens  map[string]struct{}
	phrases []string
}

func newWordSet(words []string) wordSet {
	ws := wordSet{tokens: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if containsSpace(w) {
			ws.phrases = append(ws.phrases, w)
			continue
		}
		ws.tokens[w] = struct{}{}
	}
	return ws
}

func (ws wordSet) has(token string) bool {
	_, ok := ws.tokens[token]
	return ok
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}
