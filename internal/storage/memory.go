package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idpweather/pkg/platform/sentinel"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is a map-backed Store guarded by a RWMutex. Entries are returned as
// stored even if expired; callers decide what expiry means for them and the
// sweep reclaims the space.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
}

// NewMemory constructs an empty in-memory store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]memoryEntry[T])}
}

func (s *Memory[T]) Put(_ context.Context, key string, value T, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry[T]{value: value, expiresAt: expiresAt}
	return nil
}

func (s *Memory[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		return e.value, nil
	}
	var zero T
	return zero, fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
}

func (s *Memory[T]) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// DeleteExpired removes all entries that expired before now.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *Memory[T]) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, e := range s.entries {
		if e.expiresAt.Before(now) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored entries, expired or not.
func (s *Memory[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
