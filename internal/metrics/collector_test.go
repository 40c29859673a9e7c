package metrics

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/normanking/empath/internal/bus"
)

func turnEvent(t bus.EventType, emotion, category string, ms int64) bus.Event {
	e := bus.NewEvent(t).WithSession("s1", "companion")
	e.Emotion = emotion
	e.Category = category
	e.MoodState = "positive"
	e.DurationMs = ms
	return e
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector(nil, nil)

	c.Observe(turnEvent(bus.EventTurnProcessed, "joy", "greeting", 10))
	c.Observe(turnEvent(bus.EventTurnProcessed, "joy", "goal_setting", 20))
	c.Observe(turnEvent(bus.EventTurnFallback, "neutral", "general", 100))
	c.Observe(bus.NewEvent(bus.EventMemoryWritten))
	c.Observe(bus.NewEvent(bus.EventMemoryWriteFailed))
	reaped := bus.NewEvent(bus.EventSessionsReaped)
	reaped.Count = 4
	c.Observe(reaped)

	s := c.Snapshot()
	assert.Equal(t, 3, s.Turns)
	assert.Equal(t, 1, s.Fallbacks)
	assert.InDelta(t, 130.0/3.0, s.AvgLatencyMs(), 1e-9)
	assert.InDelta(t, 1.0/3.0, s.FallbackRate(), 1e-9)
	assert.Equal(t, 2, s.ByEmotion["joy"])
	assert.Equal(t, 1, s.ByCategory["general"])
	assert.Equal(t, 3, s.ByPersona["companion"])
	assert.Equal(t, 1, s.MemoryWrites)
	assert.Equal(t, 1, s.MemoryFailures)
	assert.Equal(t, 4, s.SessionsReaped)
	assert.Equal(t, string(bus.EventSessionsReaped), s.LastEvent)
	assert.Len(t, c.RecentEvents(2), 2)

	// snapshots are copies
	s.ByEmotion["joy"] = 99
	assert.Equal(t, 2, c.Snapshot().ByEmotion["joy"])
}

func TestCollector_FromBus(t *testing.T) {
	b := bus.New()
	defer b.Close()

	c := NewCollector(b, nil)
	c.Start()
	defer c.Stop()

	require.NoError(t, b.Publish(turnEvent(bus.EventTurnProcessed, "calm", "general", 5)))

	require.Eventually(t, func() bool { return c.Snapshot().Turns == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, c.Snapshot().ByEmotion["calm"])
}

func TestStore_DailyRollup(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db)
	require.NoError(t, err)
	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }

	c := NewCollector(nil, store)
	c.Observe(turnEvent(bus.EventTurnProcessed, "joy", "greeting", 10))
	c.Observe(turnEvent(bus.EventTurnFallback, "neutral", "general", 30))
	c.Observe(bus.NewEvent(bus.EventMemoryWritten))
	c.Observe(bus.NewEvent(bus.EventSessionsReaped))

	stats, err := store.Today()
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", stats.Date)
	assert.EqualValues(t, 2, stats.Turns)
	assert.EqualValues(t, 1, stats.Fallbacks)
	assert.EqualValues(t, 1, stats.MemoryWrites)
	assert.InDelta(t, 20.0, stats.AvgLatencyMs, 1e-9)

	empty, err := store.Daily("1999-01-01")
	require.NoError(t, err)
	assert.Zero(t, empty.Turns)

	recent, err := store.Recent(7)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestDashboard_Render(t *testing.T) {
	c := NewCollector(nil, nil)
	c.Observe(turnEvent(bus.EventTurnProcessed, "joy", "greeting", 10))

	d := NewDashboard()
	d.SetWidth(100)
	out := d.Render(c.Snapshot())
	assert.Contains(t, out, "METRICS")
	assert.Contains(t, out, "joy")
	assert.Contains(t, d.RenderCompact(c.Snapshot()), "1 turns")
}
