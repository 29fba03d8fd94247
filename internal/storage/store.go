// Package storage provides the process-owned tables behind the protocol:
// authorization codes, IdP login sessions and relying-party sessions.
//
// Error Contract:
//   - Get returns sentinel.ErrNotFound when the key does not exist
//   - Delete reports whether this call removed the entry, which is what makes
//     single-use consumption safe under concurrent redemption
//   - infrastructure failures are wrapped with sentinel.ErrUnavailable
package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a keyed table of values with absolute expiry.
type Store[T any] interface {
	Put(ctx context.Context, key string, value T, expiresAt time.Time) error
	Get(ctx context.Context, key string) (T, error)
	Delete(ctx context.Context, key string) (bool, error)
	// DeleteExpired removes every entry whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Open returns a Redis-backed store under prefix when client is non-nil,
// otherwise a process-local one.
func Open[T any](client redis.UniversalClient, prefix string) Store[T] {
	if client == nil {
		return NewMemory[T]()
	}
	return NewRedis[T](client, prefix)
}
