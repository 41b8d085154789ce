// Package inmem provides an in-memory implementation of cache.Store.
//
// It is intended for tests and single-process deployments. Contents live for
// the lifetime of the process only; production deployments that need cache
// sharing or restart survival should use features/cache/redis.
package inmem

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/storelens/storelens/runtime/agent/cache"
)

type entry struct {
	payload   json.RawMessage
	createdAt time.Time
}

// Store is an in-memory implementation of cache.Store. It is safe for
// concurrent use; the expiry check and eviction happen under the same lock so
// concurrent readers cannot observe a resurrected stale entry.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock overrides the time source. Used by tests to exercise expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store with cache.DefaultTTL.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     cache.DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements cache.Store.
func (s *Store) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(e.createdAt) >= s.ttl {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Put implements cache.Store.
func (s *Store) Put(_ context.Context, key string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{payload: payload, createdAt: s.now()}
	return nil
}

// Len reports the number of live and expired entries currently held.
// Expired entries linger until the next Get for their key.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
