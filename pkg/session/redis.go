package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "formflow:session:"

// RedisStore keeps checkpoints as JSON strings with a sliding TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces the checkpoint keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, options ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, prefix: defaultKeyPrefix, ttl: ttl}
	for _, opt := range options {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisStoreFromURL(rawURL string, ttl time.Duration, options ...RedisOption) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), ttl, options...), nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Save(ctx context.Context, checkpoint Checkpoint) error {
	if checkpoint.ID == "" {
		return errors.New("session: checkpoint id is required")
	}
	payload, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("session: encode checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key(checkpoint.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Checkpoint, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("session: load checkpoint: %w", err)
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(payload, &checkpoint); err != nil {
		return Checkpoint{}, fmt.Errorf("session: decode checkpoint: %w", err)
	}
	return checkpoint, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: delete checkpoint: %w", err)
	}
	return nil
}
