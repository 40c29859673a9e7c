// Package pipeline runs one conversational turn end to end: context loading,
// emotion scoring, mood tracking, category classification, response
// dispatch, persona filtering, memory write-back and suggestions. Process
// never panics and never returns an error; failures become the fallback
// envelope.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/dispatch"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/memory"
	"github.com/normanking/empath/internal/mood"
	"github.com/normanking/empath/internal/persona"
	"github.com/normanking/empath/internal/suggest"
)

// AnonymousSession keys turns that carry neither a session nor a user.
const AnonymousSession = "anonymous"

const keywordsPerRecord = 5

// Strategy is the persona behavior a turn runs through.
type Strategy interface {
	Name() string
	Classify(text string) classify.Result
	DefaultClassification() classify.Result
	Render(req dispatch.Request) (string, error)
	SuggestionsFor(g *suggest.Generator, e emotion.Emotion, c classify.Category) []string
	Filter() *persona.Filter
}

var _ Strategy = (*persona.Persona)(nil)

// Config wires the pipeline's collaborators. Nil members get in-process
// defaults; a nil Writer or Loader disables persistence.
type Config struct {
	Personas  *persona.Registry
	Sessions  *mood.Registry
	Analyzer  *emotion.Analyzer
	Loader    *memory.ContextLoader
	Writer    *memory.Writer
	Suggester *suggest.Generator
	Bus       *bus.Bus
}

// Pipeline processes turns. It is safe for concurrent use; turns of the same
// session are serialized.
type Pipeline struct {
	personas  *persona.Registry
	sessions  *mood.Registry
	analyzer  *emotion.Analyzer
	loader    *memory.ContextLoader
	writer    *memory.Writer
	suggester *suggest.Generator
	bus       *bus.Bus

	resolve func(name string) Strategy
	now     func() time.Time
}

// New creates a pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Pipeline{
		personas:  cfg.Personas,
		sessions:  cfg.Sessions,
		analyzer:  cfg.Analyzer,
		loader:    cfg.Loader,
		writer:    cfg.Writer,
		suggester: cfg.Suggester,
		bus:       cfg.Bus,
		now:       time.Now,
	}
	if p.personas == nil {
		reg, err := persona.NewRegistry(persona.NameCompanion)
		if err != nil {
			return nil, fmt.Errorf("load built-in personas: %w", err)
		}
		p.personas = reg
	}
	if p.sessions == nil {
		p.sessions = mood.NewRegistry(mood.DefaultCapacity)
	}
	if p.analyzer == nil {
		p.analyzer = emotion.NewAnalyzer()
	}
	if p.suggester == nil {
		p.suggester = suggest.NewGenerator(nil, nil)
	}
	p.resolve = func(name string) Strategy { return p.personas.Get(name) }
	return p, nil
}

// Personas returns the persona registry.
func (p *Pipeline) Personas() *persona.Registry { return p.personas }

// Sessions returns the mood registry.
func (p *Pipeline) Sessions() *mood.Registry { return p.sessions }

// SessionKey resolves the session a turn belongs to.
func SessionKey(userRef string, tc TurnContext) string {
	switch {
	case tc.SessionID != "":
		return tc.SessionID
	case userRef != "":
		return userRef
	default:
		return AnonymousSession
	}
}

// ownerKey is the memory owner: the user when known, else the session.
func ownerKey(userRef, session string) string {
	if userRef != "" {
		return userRef
	}
	return session
}

// Process answers one turn. It always returns a structurally valid envelope;
// ErrorFlag is set only when the fallback handler produced it.
func (p *Pipeline) Process(ctx context.Context, userRef, text string, tc TurnContext) (env *Envelope) {
	start := p.now()
	session := SessionKey(userRef, tc)
	owner := ownerKey(userRef, session)

	var strategy Strategy
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error().Err(err).Str("session", session).Bytes("stack", debug.Stack()).Msg("turn panicked")
			env = p.fallback(strategy, owner, session, text, err)
		}
	}()

	strategy = p.resolve(tc.Persona)

	tracker, unlock := p.sessions.Lock(session)
	defer unlock()

	bundle := p.loader.Load(ctx, owner, session, memory.Extra{
		Mood:  priorMood(tc),
		Hints: tc.MemoryHints,
	})

	result := p.analyze(text)
	state := tracker.Push(result)
	cls := strategy.Classify(text)

	raw, err := strategy.Render(dispatch.Request{
		Text:           text,
		Classification: cls,
		Emotion:        result,
		Mood:           state,
		Hints:          bundle.Hints,
		Recall: dispatch.Recall{
			LastEmotion: bundle.LastEmotion,
			TopIntents:  bundle.Preferences.TopIntents,
			TopKeywords: bundle.Preferences.TopKeywords,
			Turns:       len(bundle.Records),
		},
	})
	if err != nil {
		return p.fallback(strategy, owner, session, text, err)
	}
	out := strategy.Filter().Apply(raw)

	env = &Envelope{
		Text: out,
		Classification: Classification{
			Result:    cls,
			Intent:    string(cls.PrimaryCategory),
			Emotion:   result.PrimaryEmotion,
			Intensity: result.Intensity,
			Flags:     result.Flags,
		},
		Confidence:  result.Confidence,
		Suggestions: strategy.SuggestionsFor(p.suggester, result.PrimaryEmotion, cls.PrimaryCategory),
		Persona:     strategy.Name(),
		SessionID:   session,
		MoodState:   string(state),
	}

	p.remember(memory.Record{
		Type: memory.TypeConversation,
		Content: memory.Content{
			Input:    text,
			Response: out,
			Emotion:  string(result.PrimaryEmotion),
			Intent:   string(cls.PrimaryCategory),
			Keywords: p.analyzer.Keywords(text, keywordsPerRecord),
		},
		EmotionLabel: string(result.PrimaryEmotion),
		Importance:   memory.ImportanceScore(result.PrimaryEmotion, result.Confidence, cls.PrimaryCategory),
		Owner:        owner,
		SessionID:    session,
		Persona:      strategy.Name(),
		Timestamp:    start,
	})

	env.ProcessingTime = p.now().Sub(start)

	ev := bus.NewEvent(bus.EventTurnProcessed).WithSession(session, env.Persona)
	ev.Owner = owner
	ev.Emotion = string(result.PrimaryEmotion)
	ev.Intensity = string(result.Intensity)
	ev.Category = string(cls.PrimaryCategory)
	ev.MoodState = env.MoodState
	ev.Confidence = env.Confidence
	ev.DurationMs = env.ProcessingTime.Milliseconds()
	p.bus.Publish(ev)

	log.Debug().
		Str("session", session).
		Str("persona", env.Persona).
		Str("emotion", string(result.PrimaryEmotion)).
		Str("category", string(cls.PrimaryCategory)).
		Str("mood", env.MoodState).
		Dur("elapsed", env.ProcessingTime).
		Msg("turn processed")

	return env
}

// analyze scores text, recovering scoring panics to the neutral result.
func (p *Pipeline) analyze(text string) (res *emotion.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Err(fmt.Errorf("%w: %v", ErrAnalysis, r)).Msg("emotion scoring recovered to neutral")
			res = emotion.NeutralResult(p.now())
		}
	}()
	res = p.analyzer.Analyze(text)
	if res == nil {
		res = emotion.NeutralResult(p.now())
	}
	return res
}

// fallback builds the error envelope and records the failed turn.
func (p *Pipeline) fallback(s Strategy, owner, session, text string, cause error) (env *Envelope) {
	if errors.Is(cause, ErrTemplate) {
		log.Warn().Err(cause).Str("session", session).Msg("response render failed, using fallback")
	} else {
		log.Warn().Err(cause).Str("session", session).Msg("turn failed, using fallback")
	}

	defer func() {
		// the envelope must survive a misbehaving strategy
		if r := recover(); r != nil {
			env = FallbackEnvelope(nil, session, nil)
		}
	}()

	var suggestions []string
	if p.suggester != nil {
		suggestions = p.suggester.Generate(suggest.Set{}, emotion.Neutral, "")
	}
	env = FallbackEnvelope(s, session, suggestions)

	p.remember(memory.Record{
		Type: memory.TypeFallback,
		Content: memory.Content{
			Input:    text,
			Response: env.Text,
			Emotion:  string(emotion.Neutral),
			Intent:   env.Classification.Intent,
		},
		EmotionLabel: string(emotion.Neutral),
		Importance:   memory.ImportanceScore(emotion.Neutral, 0, env.Classification.PrimaryCategory),
		Owner:        owner,
		SessionID:    session,
		Persona:      env.Persona,
		Timestamp:    p.now(),
	})

	ev := bus.NewEvent(bus.EventTurnFallback).WithSession(session, env.Persona).WithError(cause)
	ev.Owner = owner
	ev.Emotion = string(emotion.Neutral)
	ev.Category = string(env.Classification.PrimaryCategory)
	ev.Confidence = env.Confidence
	ev.DurationMs = env.ProcessingTime.Milliseconds()
	p.bus.Publish(ev)

	return env
}

// remember submits rec without blocking the turn.
func (p *Pipeline) remember(rec memory.Record) {
	if p.writer == nil {
		return
	}
	if err := p.writer.Submit(rec); err != nil {
		log.Debug().Err(fmt.Errorf("%w: %w", ErrPersistence, err)).Str("owner", rec.Owner).Msg("memory write not queued")
	}
}

// priorMood is the caller's mood, else the strongest label in EmotionData.
func priorMood(tc TurnContext) string {
	if tc.Mood != "" {
		return tc.Mood
	}
	if len(tc.EmotionData) == 0 {
		return ""
	}
	labels := make([]string, 0, len(tc.EmotionData))
	for k := range tc.EmotionData {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	best := ""
	for _, k := range labels {
		if best == "" || tc.EmotionData[k] > tc.EmotionData[best] {
			best = k
		}
	}
	return best
}
