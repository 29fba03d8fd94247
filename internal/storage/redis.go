package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idpweather/pkg/platform/sentinel"
)

// Redis stores JSON-encoded values under prefix+key with a key TTL derived from
// the expiry, so Redis itself reclaims expired entries. The TTL is padded by
// retainExpired so a lazily-checked expired record is still visible to the
// caller that has to report it as expired.
type Redis[T any] struct {
	client        redis.UniversalClient
	prefix        string
	retainExpired time.Duration
	now           func() time.Time
}

// RedisOption configures a Redis store.
type RedisOption[T any] func(*Redis[T])

// WithClock overrides the clock used to compute key TTLs.
func WithClock[T any](now func() time.Time) RedisOption[T] {
	return func(s *Redis[T]) {
		s.now = now
	}
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed by the caller.
func NewRedis[T any](client redis.UniversalClient, prefix string, opts ...RedisOption[T]) *Redis[T] {
	s := &Redis[T]{
		client:        client,
		prefix:        prefix,
		retainExpired: time.Minute,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Redis[T]) key(k string) string {
	return s.prefix + k
}

func (s *Redis[T]) Put(ctx context.Context, key string, value T, expiresAt time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	ttl := expiresAt.Sub(s.now()) + s.retainExpired
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, s.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

func (s *Redis[T]) Get(ctx context.Context, key string) (T, error) {
	var value T
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return value, fmt.Errorf("redis get: %v: %w", err, sentinel.ErrUnavailable)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode %q: %w", key, err)
	}
	return value, nil
}

// Delete relies on DEL's reply count: exactly one concurrent caller observes 1.
func (s *Redis[T]) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %v: %w", err, sentinel.ErrUnavailable)
	}
	return n == 1, nil
}

// DeleteExpired is a no-op: key TTLs expire entries server-side.
func (s *Redis[T]) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
