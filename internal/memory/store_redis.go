package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces owner lists.
const DefaultRedisPrefix = "empath:memory:"

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	MaxPerOwner int
}

// RedisStore keeps one capped list per owner, newest at the head.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	max    int64
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w: %w", ErrUnavailable, err)
	}
	return NewRedisStore(rdb, cfg.Prefix, cfg.MaxPerOwner), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string, maxPerOwner int) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if maxPerOwner <= 0 {
		maxPerOwner = DefaultMaxPerOwner
	}
	return &RedisStore{rdb: rdb, prefix: prefix, max: int64(maxPerOwner)}
}

func (s *RedisStore) key(owner string) string {
	return s.prefix + owner
}

// Store pushes rec to the head of the owner's list and trims the tail.
func (s *RedisStore) Store(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Type == "" {
		rec.Type = TypeConversation
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal memory record: %w", err)
	}

	key := s.key(rec.Owner)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, s.max-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("lpush memory record: %w", err)
	}
	return nil
}

// Recall returns up to limit records for owner, most recent first.
func (s *RedisStore) Recall(ctx context.Context, owner string, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.rdb.LRange(ctx, s.key(owner), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange memory records: %w", err)
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode memory record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
