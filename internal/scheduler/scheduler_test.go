package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/mood"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReapIdle_PublishesCount(t *testing.T) {
	b := bus.New()
	defer b.Close()
	reg := mood.NewRegistry(0)
	reg.Tracker("a")
	reg.Tracker("b")

	s, err := New(reg, b, "", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, s.ReapIdle())
	assert.Zero(t, reg.Len())

	hist := b.History()
	require.Len(t, hist, 1)
	assert.Equal(t, bus.EventSessionsReaped, hist[0].Type)
	assert.Equal(t, 2, hist[0].Count)

	// nothing left, nothing published
	assert.Zero(t, s.ReapIdle())
	assert.Len(t, b.History(), 1)
}

func TestReapIdle_KeepsBusySessions(t *testing.T) {
	reg := mood.NewRegistry(0)
	reg.Tracker("busy")
	_, unlock := reg.Lock("busy")

	s, err := New(reg, nil, "", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	assert.Zero(t, s.ReapIdle())
	unlock()
	assert.Equal(t, 1, s.ReapIdle())
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(mood.NewRegistry(0), nil, "whenever", time.Minute)
	assert.Error(t, err)
}

func TestNew_DisabledWithoutIdle(t *testing.T) {
	s, err := New(mood.NewRegistry(0), nil, "@every 1m", 0)
	require.NoError(t, err)
	assert.Zero(t, s.Jobs())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	reg := mood.NewRegistry(0)
	reg.Tracker("stale")

	s, err := New(reg, nil, "@every 1s", time.Millisecond)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, 3*time.Second, 50*time.Millisecond)
}
