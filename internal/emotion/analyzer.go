package emotion

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// IntensifierBoost is added to a category's score once per intensifier in
// the text. It applies only to categories with at least one keyword match,
// so intensifiers alone never lift a category above zero.
const IntensifierBoost = 0.2

// Analyzer scores text against a Lexicon. It holds no mutable state after
// construction and is safe for concurrent use.
type Analyzer struct {
	categories   map[Emotion]wordSet
	intensifiers wordSet
	urgency      wordSet
	hedging      wordSet
	questionLed  wordSet
	highEnergy   wordSet
	lowEnergy    wordSet
	connected    wordSet
	isolated     wordSet
	focused      wordSet
	confused     wordSet
	stopwords    wordSet

	now func() time.Time
}

// NewAnalyzer creates an analyzer over the default lexicon.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithLexicon(DefaultLexicon())
}

// NewAnalyzerWithLexicon creates an analyzer over a custom lexicon.
// A nil lexicon falls back to DefaultLexicon.
func NewAnalyzerWithLexicon(lex *Lexicon) *Analyzer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	a := &Analyzer{
		categories:   make(map[Emotion]wordSet, len(Order)),
		intensifiers: newWordSet(lex.Intensifiers),
		urgency:      newWordSet(lex.Urgency),
		hedging:      newWordSet(lex.Hedging),
		questionLed:  newWordSet(lex.QuestionLed),
		highEnergy:   newWordSet(lex.HighEnergy),
		lowEnergy:    newWordSet(lex.LowEnergy),
		connected:    newWordSet(lex.Connected),
		isolated:     newWordSet(lex.Isolated),
		focused:      newWordSet(lex.Focused),
		confused:     newWordSet(lex.Confused),
		stopwords:    newWordSet(lex.Stopwords),
		now:          time.Now,
	}
	for _, e := range Order {
		a.categories[e] = newWordSet(lex.Categories[e])
	}
	return a
}

// WithClock overrides the timestamp source. Intended for tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	if now != nil {
		a.now = now
	}
	return a
}

// Analyze scores the input. It never panics and never fails: empty or
// unreadable input yields the neutral all-zero result.
func (a *Analyzer) Analyze(text string) *Result {
	at := a.now()
	text = strings.ToValidUTF8(text, " ")
	lower := strings.ToLower(text)
	tokens := Tokenize(lower)
	if len(tokens) == 0 {
		return NeutralResult(at)
	}

	intensifiers := 0
	for _, tok := range tokens {
		if a.intensifiers.has(tok) {
			intensifiers++
		}
	}

	denom := float64(max(len(tokens), 1))
	scores := make(map[Emotion]float64, len(Order))
	for _, e := range Order {
		set := a.categories[e]
		matches := 0
		for _, tok := range tokens {
			if set.has(tok) {
				matches++
			}
		}
		score := float64(matches) / denom
		if matches > 0 {
			score += IntensifierBoost * float64(intensifiers)
		}
		scores[e] = clamp01(score)
	}

	primary := Neutral
	best := 0.0
	for _, e := range Order {
		if scores[e] > best {
			best = scores[e]
			primary = e
		}
	}

	return &Result{
		PrimaryEmotion: primary,
		Intensity:      Band(best),
		Confidence:     min(best, 1.0),
		Scores:         scores,
		Flags:          a.flags(text, lower, tokens),
		Indicators:     a.indicators(text, lower, tokens),
		Timestamp:      at,
	}
}

func (a *Analyzer) flags(raw, lower string, tokens []string) Flags {
	question := strings.Contains(raw, "?")
	if !question && len(tokens) > 0 {
		question = a.questionLed.has(tokens[0])
	}
	return Flags{
		Question:    question,
		Urgency:     count(a.urgency, lower, tokens) > 0,
		Uncertainty: count(a.hedging, lower, tokens) > 0,
	}
}

func (a *Analyzer) indicators(raw, lower string, tokens []string) Indicators {
	ind := Indicators{Energy: "moderate", SocialMood: "neutral", CognitiveState: "neutral"}

	high := count(a.highEnergy, lower, tokens)
	low := count(a.lowEnergy, lower, tokens)
	if strings.Count(raw, "!") >= 2 {
		high++
	}
	switch {
	case high > low:
		ind.Energy = "high"
	case low > high:
		ind.Energy = "low"
	}

	connected := count(a.connected, lower, tokens)
	isolated := count(a.isolated, lower, tokens)
	switch {
	case isolated > connected:
		ind.SocialMood = "isolated"
	case connected > isolated:
		ind.SocialMood = "connected"
	}

	// confusion phrases ("don't understand") outrank the focused words they contain
	if count(a.confused, lower, tokens) > 0 {
		ind.CognitiveState = "confused"
	} else if count(a.focused, lower, tokens) > 0 {
		ind.CognitiveState = "focused"
	}

	return ind
}

// count returns how many tokens and phrases of ws occur in the input.
func count(ws wordSet, lower string, tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if ws.has(tok) {
			n++
		}
	}
	for _, p := range ws.phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// Tokenize splits text into lowercase tokens on anything that is not a
// letter, digit or apostrophe. Leading and trailing apostrophes are trimmed.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.ReplaceAll(f, "’", "'")
		f = strings.Trim(f, "'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Keywords extracts up to n content words from text, most frequent first,
// ties broken by first appearance. Stopwords and tokens shorter than three
// characters are skipped.
func (a *Analyzer) Keywords(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	tokens := Tokenize(strings.ToValidUTF8(text, " "))

	type entry struct {
		word  string
		count int
		first int
	}
	seen := make(map[string]*entry)
	var entries []*entry
	for i, tok := range tokens {
		if len([]rune(tok)) < 3 || a.stopwords.has(tok) || a.intensifiers.has(tok) {
			continue
		}
		if e, ok := seen[tok]; ok {
			e.count++
			continue
		}
		e := &entry{word: tok, count: 1, first: i}
		seen[tok] = e
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.word
	}
	return out
}
