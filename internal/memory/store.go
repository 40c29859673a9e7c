package memory

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxPerOwner bounds how many records a store keeps per owner.
const DefaultMaxPerOwner = 500

// ErrUnavailable is returned by stores that cannot be reached.
var ErrUnavailable = errors.New("memory store unavailable")

// Store is the persistence contract the pipeline writes to and loads from.
type Store interface {
	// Store appends a record.
	Store(ctx context.Context, rec Record) error
	// Recall returns up to limit records for owner, most recent first.
	Recall(ctx context.Context, owner string, limit int) ([]Record, error)
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string // memory | sqlite | redis
	Driver      string // sqlite driver: sqlite (modernc) or sqlite3 (mattn)
	Path        string // sqlite database file
	Redis       RedisConfig
	MaxPerOwner int
}

// Open builds the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.MaxPerOwner <= 0 {
		opts.MaxPerOwner = DefaultMaxPerOwner
	}
	switch opts.Backend {
	case "", "memory":
		return NewInMemoryStore(opts.MaxPerOwner), nil
	case "sqlite":
		return OpenSQLite(ctx, opts.Driver, opts.Path)
	case "redis":
		if opts.Redis.MaxPerOwner <= 0 {
			opts.Redis.MaxPerOwner = opts.MaxPerOwner
		}
		return OpenRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown memory backend %q (valid: memory, sqlite, redis)", opts.Backend)
	}
}

// Close releases the store if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
