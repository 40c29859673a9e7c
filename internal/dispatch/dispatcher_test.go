package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/emotion"
	"github.com/normanking/empath/internal/mood"
)

func req(category classify.Category, text string) Request {
	return Request{
		Text:           text,
		Classification: classify.Result{Domain: "test", PrimaryCategory: category, Priority: "normal"},
	}
}

func TestDispatcher_RegisteredAndDefault(t *testing.T) {
	d := New(func(Request) (string, error) { return "default", nil })
	d.Register("greeting", func(r Request) (string, error) { return "hello " + r.Text, nil })

	got, err := d.Dispatch(req("greeting", "bob"))
	require.NoError(t, err)
	assert.Equal(t, "hello bob", got)

	got, err = d.Dispatch(req("unknown", "x"))
	require.NoError(t, err)
	assert.Equal(t, "default", got)

	assert.True(t, d.Has("greeting"))
	assert.False(t, d.Has("unknown"))
}

func TestDispatcher_Failures(t *testing.T) {
	d := New(nil)
	_, err := d.Dispatch(req("x", ""))
	assert.True(t, errors.Is(err, ErrTemplateFailure))

	d = New(func(Request) (string, error) { return "   ", nil })
	_, err = d.Dispatch(req("x", ""))
	assert.True(t, errors.Is(err, ErrTemplateFailure))

	boom := errors.New("boom")
	d = New(func(Request) (string, error) { return "", boom })
	_, err = d.Dispatch(req("x", ""))
	assert.True(t, errors.Is(err, ErrTemplateFailure))
	assert.True(t, errors.Is(err, boom))
}

func TestTemplateBank_Render(t *testing.T) {
	bank, err := NewTemplateBank("tester", map[classify.Category][]string{
		"venting": {"I hear you. Feeling {{.Emotion}} about {{humanize .Category}} is okay."},
	}, []string{"Tell me more about that."})
	require.NoError(t, err)

	d := bank.Dispatcher()
	r := req("venting", "ugh")
	r.Emotion = &emotion.Result{PrimaryEmotion: emotion.Frustration, Intensity: emotion.IntensityHigh}
	r.Mood = mood.StateAgitated

	got, err := d.Dispatch(r)
	require.NoError(t, err)
	assert.Equal(t, "I hear you. Feeling frustration about venting is okay.", got)

	got, err = bank.Render("unregistered", classify.Result{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Tell me more about that.", got)

	var _ TemplateProvider = bank
	got, err = ProviderGenerator(bank)(req("venting", ""))
	require.NoError(t, err)
	assert.Contains(t, got, "Feeling neutral")
}

func TestTemplateBank_DeterministicVariant(t *testing.T) {
	bank, err := NewTemplateBank("tester", map[classify.Category][]string{
		"general": {"one", "two", "three", "four"},
	}, []string{"fallback"})
	require.NoError(t, err)

	for _, in := range []string{"a", "hello there", "something else entirely"} {
		first, err := bank.Execute(req("general", in))
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := bank.Execute(req("general", in))
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestTemplateBank_EmptyRenderIsFailure(t *testing.T) {
	bank, err := NewTemplateBank("tester", map[classify.Category][]string{
		"blank": {"{{if .Hints}}hints{{end}}"},
	}, []string{"ok"})
	require.NoError(t, err)

	_, err = bank.Execute(req("blank", "x"))
	assert.True(t, errors.Is(err, ErrTemplateFailure))
}

func TestNewTemplateBank_Errors(t *testing.T) {
	_, err := NewTemplateBank("bad", map[classify.Category][]string{"x": {"{{.Nope"}}, []string{"ok"})
	assert.Error(t, err)

	_, err = NewTemplateBank("nofallback", nil, nil)
	assert.Error(t, err)
}

func TestTemplateBank_DispatcherBindsEachCategory(t *testing.T) {
	bank, err := NewTemplateBank("tester", map[classify.Category][]string{
		"greeting": {"hello"},
		"venting":  {"I hear you"},
	}, []string{"tell me more"})
	require.NoError(t, err)

	d := bank.Dispatcher()
	assert.True(t, d.Has("greeting"))
	assert.True(t, d.Has("venting"))
	assert.False(t, d.Has("general"))

	d.Register("venting", func(Request) (string, error) { return "custom", nil })

	for category, want := range map[classify.Category]string{
		"greeting": "hello",
		"venting":  "custom",
		"general":  "tell me more",
	} {
		got, err := d.Dispatch(req(category, "x"))
		require.NoError(t, err)
		assert.Equal(t, want, got, category)
	}
}

func TestTemplateBank_Recall(t *testing.T) {
	bank, err := NewTemplateBank("tester", map[classify.Category][]string{
		"greeting": {"Hello.{{if .LastEmotion}} Last time you felt {{.LastEmotion}}.{{end}}" +
			"{{with first .Topics}} Still thinking about {{.}}?{{end}}{{if not .Returning}} Nice to meet you.{{end}}"},
	}, []string{"ok"})
	require.NoError(t, err)

	got, err := bank.Execute(req("greeting", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello. Nice to meet you.", got)

	r := req("greeting", "hi")
	r.Recall = Recall{LastEmotion: "Sadness", TopKeywords: []string{"exam", "school"}, Turns: 5}
	got, err = bank.Execute(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello. Last time you felt sadness. Still thinking about exam?", got)

	r.Recall = Recall{LastEmotion: "neutral"}
	got, err = bank.Execute(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello. Nice to meet you.", got)
}
