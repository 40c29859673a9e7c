package memory

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // CGO driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"
)

//go:embed migrations/001_memory_records.sql
var recordsSchema string

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// OpenSQLite opens (creating if needed) the database at path with the named
// driver ("sqlite" or "sqlite3") and applies the schema.
func OpenSQLite(ctx context.Context, driver, path string) (*SQLiteStore, error) {
	if driver == "" {
		driver = "sqlite"
	}
	if driver != "sqlite" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported sqlite driver %q (valid: sqlite, sqlite3)", driver)
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore wraps an open database and applies the schema.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, recordsSchema); err != nil {
		return nil, fmt.Errorf("apply memory schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying database so other components can share it.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Store inserts a record.
func (s *SQLiteStore) Store(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Type == "" {
		rec.Type = TypeConversation
	}

	content, err := json.Marshal(rec.Content)
	if err != nil {
		return fmt.Errorf("marshal memory content: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_records (
			id, record_type, owner, session_id, persona, content, emotion_label, importance, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, string(rec.Type), rec.Owner, nullString(rec.SessionID), nullString(rec.Persona),
		string(content), rec.EmotionLabel, rec.Importance, rec.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store memory record: %w", err)
	}
	return nil
}

// Recall returns up to limit records for owner, most recent first.
func (s *SQLiteStore) Recall(ctx context.Context, owner string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_type, owner, session_id, persona, content, emotion_label, importance, created_at
		FROM memory_records
		WHERE owner = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("recall memory records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                Record
			recType, content   string
			sessionID, persona sql.NullString
			emotionLabel       sql.NullString
			createdAt          int64
		)
		if err := rows.Scan(&rec.ID, &recType, &rec.Owner, &sessionID, &persona,
			&content, &emotionLabel, &rec.Importance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory record: %w", err)
		}
		rec.Type = RecordType(recType)
		rec.SessionID = sessionID.String
		rec.Persona = persona.String
		rec.EmotionLabel = emotionLabel.String
		rec.Timestamp = time.Unix(0, createdAt)
		if err := json.Unmarshal([]byte(content), &rec.Content); err != nil {
			return nil, fmt.Errorf("decode memory content %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of records stored for owner.
func (s *SQLiteStore) Count(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_records WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count memory records: %w", err)
	}
	return n, nil
}

// Close closes the database if this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expandHome(path string) (string, error) {
	if path == ":memory:" || len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
