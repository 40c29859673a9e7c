package metrics

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/normanking/empath/internal/bus"
)

// DailyStats contains aggregated counters for one day.
type DailyStats struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	Turns          int64   `json:"turns"`
	Fallbacks      int64   `json:"fallbacks"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MemoryWrites   int64   `json:"memory_writes"`
	MemoryFailures int64   `json:"memory_failures"`
}

// Store persists daily counters in SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates the metrics table on db if needed.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS metrics_daily (
		date TEXT PRIMARY KEY,
		turns INTEGER NOT NULL DEFAULT 0,
		fallbacks INTEGER NOT NULL DEFAULT 0,
		total_latency_ms INTEGER NOT NULL DEFAULT 0,
		memory_writes INTEGER NOT NULL DEFAULT 0,
		memory_failures INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Record folds one event into today's row.
func (s *Store) Record(event bus.Event) error {
	var turns, fallbacks, latency, writes, failures int64
	switch event.Type {
	case bus.EventTurnProcessed:
		turns, latency = 1, event.DurationMs
	case bus.EventTurnFallback:
		turns, fallbacks, latency = 1, 1, event.DurationMs
	case bus.EventMemoryWritten:
		writes = 1
	case bus.EventMemoryWriteFailed:
		failures = 1
	default:
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.now().Format("2006-01-02")
	_, err := s.db.Exec(`
		INSERT INTO metrics_daily (date, turns, fallbacks, total_latency_ms, memory_writes, memory_failures)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			turns = turns + excluded.turns,
			fallbacks = fallbacks + excluded.fallbacks,
			total_latency_ms = total_latency_ms + excluded.total_latency_ms,
			memory_writes = memory_writes + excluded.memory_writes,
			memory_failures = memory_failures + excluded.memory_failures,
			updated_at = CURRENT_TIMESTAMP
	`, date, turns, fallbacks, latency, writes, failures)
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// Daily returns the stats for date, zeroed when no row exists.
func (s *Store) Daily(date string) (*DailyStats, error) {
	stats := &DailyStats{Date: date}
	var totalLatency int64

	err := s.db.QueryRow(`
		SELECT turns, fallbacks, total_latency_ms, memory_writes, memory_failures
		FROM metrics_daily WHERE date = ?
	`, date).Scan(&stats.Turns, &stats.Fallbacks, &totalLatency, &stats.MemoryWrites, &stats.MemoryFailures)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	if stats.Turns > 0 {
		stats.AvgLatencyMs = float64(totalLatency) / float64(stats.Turns)
	}
	return stats, nil
}

// Today returns the stats for the current day.
func (s *Store) Today() (*DailyStats, error) {
	return s.Daily(s.now().Format("2006-01-02"))
}

// Recent returns up to days rows, newest first.
func (s *Store) Recent(days int) ([]DailyStats, error) {
	rows, err := s.db.Query(`
		SELECT date, turns, fallbacks, total_latency_ms, memory_writes, memory_failures
		FROM metrics_daily
		ORDER BY date DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStats
	for rows.Next() {
		var d DailyStats
		var totalLatency int64
		if err := rows.Scan(&d.Date, &d.Turns, &d.Fallbacks, &totalLatency, &d.MemoryWrites, &d.MemoryFailures); err != nil {
			return nil, err
		}
		if d.Turns > 0 {
			d.AvgLatencyMs = float64(totalLatency) / float64(d.Turns)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
