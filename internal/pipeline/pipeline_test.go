package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/dispatch"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/memory"
	"github.com/normanking/empath/internal/persona"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingStore struct{}

func (failingStore) Store(context.Context, memory.Record) error { return memory.ErrUnavailable }
func (failingStore) Recall(context.Context, string, int) ([]memory.Record, error) {
	return nil, memory.ErrUnavailable
}

// brokenRender wraps a persona with a provider that fails.
type brokenRender struct {
	*persona.Persona
	err   error
	panic bool
}

func (b brokenRender) Render(dispatch.Request) (string, error) {
	if b.panic {
		panic("template exploded")
	}
	return "", b.err
}

func newPipeline(t *testing.T, store memory.Store) (*Pipeline, *memory.Writer) {
	t.Helper()
	var w *memory.Writer
	cfg := &Config{}
	if store != nil {
		w = memory.NewWriter(store, memory.WriterOptions{Workers: 1})
		cfg.Writer = w
		cfg.Loader = memory.NewContextLoader(store, 0, 0)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p, w
}

func TestProcess_ExcitedInput(t *testing.T) {
	p, _ := newPipeline(t, nil)

	env := p.Process(context.Background(), "alice", "I am extremely happy and excited!", TurnContext{})

	require.NotNil(t, env)
	assert.False(t, env.ErrorFlag)
	assert.NotEmpty(t, env.Text)
	assert.Contains(t, []emotion.Emotion{emotion.Joy, emotion.Excitement}, env.Classification.Emotion)
	assert.GreaterOrEqual(t, env.Classification.Intensity.Rank(), emotion.IntensityHigh.Rank())
	assert.Greater(t, env.Confidence, 0.0)
	assert.LessOrEqual(t, env.Confidence, 1.0)
	assert.Equal(t, "alice", env.SessionID)
	assert.Equal(t, persona.NameCompanion, env.Persona)
	assert.Equal(t, "positive", env.MoodState)
	assert.LessOrEqual(t, len(env.Suggestions), 3)
	assert.NotEmpty(t, env.Suggestions)
}

func TestProcess_EmptyInput(t *testing.T) {
	p, _ := newPipeline(t, nil)

	env := p.Process(context.Background(), "", "", TurnContext{})

	assert.False(t, env.ErrorFlag)
	assert.NotEmpty(t, env.Text)
	assert.Equal(t, emotion.Neutral, env.Classification.Emotion)
	assert.Equal(t, emotion.IntensityLow, env.Classification.Intensity)
	assert.Equal(t, classify.General, env.Classification.PrimaryCategory)
	assert.Zero(t, env.Confidence)
	assert.Equal(t, AnonymousSession, env.SessionID)
	assert.Equal(t, "neutral", env.MoodState)
}

func TestProcess_HistoryKeepsLastTen(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	p, err := New(&Config{Analyzer: emotion.NewAnalyzer().WithClock(clock)})
	require.NoError(t, err)

	inputs := []string{
		"I am so happy", "I feel sad", "this makes me angry", "I am scared",
		"so calm and peaceful", "I love you", "I'm anxious", "so frustrated",
		"feeling inspired", "really excited", "happy again",
	}
	for _, in := range inputs {
		p.Process(context.Background(), "", in, TurnContext{SessionID: "s-11"})
	}

	tr := p.Sessions().Tracker("s-11")
	hist := tr.History()
	require.Len(t, hist, 10)
	// the first turn (tick 1) was evicted
	assert.Equal(t, base.Add(2*time.Second), hist[0].Timestamp)
	assert.Equal(t, base.Add(11*time.Second), hist[9].Timestamp)
}

func TestProcess_CareCrisis(t *testing.T) {
	p, _ := newPipeline(t, nil)

	env := p.Process(context.Background(), "bob", "This is an emergency, I need help now", TurnContext{Persona: persona.NameCaregiver})

	assert.False(t, env.ErrorFlag)
	assert.Equal(t, persona.NameCaregiver, env.Persona)
	assert.Equal(t, classify.CrisisIntervention, env.Classification.PrimaryCategory)
	assert.Equal(t, classify.PriorityCritical, env.Classification.Priority)
	assert.Equal(t, "care", env.Classification.Domain)
}

func TestProcess_Deterministic(t *testing.T) {
	p, _ := newPipeline(t, nil)
	ctx := context.Background()
	text := "I'm worried about my exam tomorrow, any advice?"

	a := p.Process(ctx, "u1", text, TurnContext{SessionID: "a"})
	b := p.Process(ctx, "u1", text, TurnContext{SessionID: "b"})

	assert.Equal(t, a.Classification.Emotion, b.Classification.Emotion)
	assert.Equal(t, a.Classification.Intensity, b.Classification.Intensity)
	assert.Equal(t, a.Classification.PrimaryCategory, b.Classification.PrimaryCategory)
	assert.Equal(t, a.Text, b.Text)
}

func TestProcess_StoreFailureDoesNotChangeResponse(t *testing.T) {
	ctx := context.Background()
	text := "My goal is to run a marathon and I feel inspired"

	ok, okWriter := newPipeline(t, memory.NewInMemoryStore(0))
	bad, badWriter := newPipeline(t, failingStore{})

	good := ok.Process(ctx, "carol", text, TurnContext{})
	failed := bad.Process(ctx, "carol", text, TurnContext{})
	okWriter.Close()
	badWriter.Close()

	assert.False(t, failed.ErrorFlag)
	assert.Equal(t, good.Text, failed.Text)
	assert.Equal(t, good.Classification, failed.Classification)
	assert.Equal(t, good.Suggestions, failed.Suggestions)
	assert.EqualValues(t, 1, okWriter.Stats().Written)
	assert.EqualValues(t, 1, badWriter.Stats().Failed)
}

func TestProcess_WritesMemoryRecord(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	p, w := newPipeline(t, store)

	p.Process(context.Background(), "dana", "My goal is to finally learn piano, I'm so excited", TurnContext{SessionID: "s1"})
	w.Close()

	recs, err := store.Recall(context.Background(), "dana", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, memory.TypeConversation, r.Type)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, persona.NameCompanion, r.Persona)
	assert.Equal(t, string(classify.GoalSetting), r.Content.Intent)
	assert.NotEmpty(t, r.Content.Response)
	assert.Contains(t, r.Content.Keywords, "piano")
	assert.GreaterOrEqual(t, r.Importance, 4)
	assert.LessOrEqual(t, r.Importance, memory.MaxImportance)
}

func TestProcess_TemplateFailureFallsBack(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	p, w := newPipeline(t, store)
	b := bus.New()
	defer b.Close()
	p.bus = b

	companion := p.Personas().Get(persona.NameCompanion)
	cases := map[string]Strategy{
		"error": brokenRender{Persona: companion, err: fmt.Errorf("%w: no variants", dispatch.ErrTemplateFailure)},
		"empty": brokenRender{Persona: companion, err: errors.New("render returned nothing")},
		"panic": brokenRender{Persona: companion, panic: true},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			p.resolve = func(string) Strategy { return s }

			env := p.Process(context.Background(), "erin", "hello there", TurnContext{})

			require.NotNil(t, env)
			assert.True(t, env.ErrorFlag)
			assert.Equal(t, FallbackText, env.Text)
			assert.Equal(t, FallbackConfidence, env.Confidence)
			assert.Equal(t, FallbackProcessingTime, env.ProcessingTime)
			assert.Equal(t, classify.General, env.Classification.PrimaryCategory)
			assert.Equal(t, persona.NameCompanion, env.Persona)
			assert.LessOrEqual(t, len(env.Suggestions), 3)
		})
	}
	w.Close()

	recs, err := store.Recall(context.Background(), "erin", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, memory.TypeFallback, r.Type)
	}

	fallbacks := 0
	for _, e := range b.History() {
		if e.Type == bus.EventTurnFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 3, fallbacks)
}

func TestProcess_PanicBeforePersonaResolved(t *testing.T) {
	p, _ := newPipeline(t, nil)
	p.resolve = func(string) Strategy { panic("registry gone") }

	env := p.Process(context.Background(), "", "hi", TurnContext{})
	assert.True(t, env.ErrorFlag)
	assert.Equal(t, FallbackText, env.Text)
	assert.Empty(t, env.Persona)
}

func TestProcess_PublishesTurnEvent(t *testing.T) {
	b := bus.New()
	defer b.Close()
	p, err := New(&Config{Bus: b})
	require.NoError(t, err)

	p.Process(context.Background(), "fay", "thank you so much", TurnContext{SessionID: "s9", Persona: persona.NameCoach})

	hist := b.History()
	require.Len(t, hist, 1)
	e := hist[0]
	assert.Equal(t, bus.EventTurnProcessed, e.Type)
	assert.Equal(t, "s9", e.SessionID)
	assert.Equal(t, "fay", e.Owner)
	assert.Equal(t, persona.NameCoach, e.Persona)
	assert.NotEmpty(t, e.Category)
}

func TestProcess_ConcurrentSessions(t *testing.T) {
	p, _ := newPipeline(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				env := p.Process(ctx, "", "I feel happy today", TurnContext{SessionID: fmt.Sprintf("s%d", s)})
				assert.False(t, env.ErrorFlag)
			}(s)
		}
	}
	wg.Wait()

	for s := 0; s < 4; s++ {
		assert.Equal(t, 10, p.Sessions().Tracker(fmt.Sprintf("s%d", s)).Len())
	}
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "sess", SessionKey("user", TurnContext{SessionID: "sess"}))
	assert.Equal(t, "user", SessionKey("user", TurnContext{}))
	assert.Equal(t, AnonymousSession, SessionKey("", TurnContext{}))
}

func TestPriorMood(t *testing.T) {
	assert.Equal(t, "calm", priorMood(TurnContext{Mood: "calm", EmotionData: map[string]float64{"joy": 1}}))
	assert.Equal(t, "joy", priorMood(TurnContext{EmotionData: map[string]float64{"sadness": 0.2, "joy": 0.7}}))
	assert.Equal(t, "anger", priorMood(TurnContext{EmotionData: map[string]float64{"joy": 0.5, "anger": 0.5}}))
	assert.Empty(t, priorMood(TurnContext{}))
}

func TestEnvelope_JSON(t *testing.T) {
	env := FallbackEnvelope(nil, "s1", []string{"Try again"})
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, true, m["error_flag"])
	assert.EqualValues(t, 100, m["processing_time_ms"])
	assert.Equal(t, 0.5, m["confidence"])
	cls, ok := m["classification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "neutral", cls["emotion"])
}

func TestProcess_RecalledContextShapesResponse(t *testing.T) {
	ctx := context.Background()
	fresh, _ := newPipeline(t, nil)
	baseline := fresh.Process(ctx, "bob", "hello", TurnContext{})
	require.False(t, baseline.ErrorFlag)
	require.Equal(t, classify.Greeting, baseline.Classification.PrimaryCategory)
	assert.NotContains(t, baseline.Text, "sadness")

	store := memory.NewInMemoryStore(0)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(ctx, memory.Record{
			Type: memory.TypeConversation,
			Content: memory.Content{
				Input:    "I failed my exam and feel awful",
				Emotion:  string(emotion.Sadness),
				Intent:   string(classify.PersonalSharing),
				Keywords: []string{"exam"},
			},
			EmotionLabel: string(emotion.Sadness),
			Owner:        "bob",
			SessionID:    "earlier",
			Persona:      persona.NameCompanion,
			Timestamp:    start.Add(time.Duration(i) * time.Minute),
		}))
	}
	recalled, w := newPipeline(t, store)
	withHistory := recalled.Process(ctx, "bob", "hello", TurnContext{})
	w.Close()

	assert.False(t, withHistory.ErrorFlag)
	assert.NotEqual(t, baseline.Text, withHistory.Text)
	assert.Contains(t, withHistory.Text, "sadness")

	// caller-supplied mood alone reaches the templates too
	told := fresh.Process(ctx, "erin", "hello", TurnContext{Mood: "sadness"})
	assert.NotEqual(t, baseline.Text, told.Text)
	assert.Contains(t, told.Text, "sadness")
}
