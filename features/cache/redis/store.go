// Package redis implements cache.Store on Redis. Entries carry a native
// Redis TTL, so expiry and eviction are atomic on the server and shared
// across service instances. Use this backend in production; the in-memory
// store only lives for one process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/storelens/storelens/runtime/agent/cache"
)

const defaultPrefix = "storelens:answer:"

// Options configures the Redis store.
type Options struct {
	// Client is the Redis connection. Required.
	Client *goredis.Client
	// TTL overrides cache.DefaultTTL.
	TTL time.Duration
	// Prefix namespaces the cache keys; defaults to "storelens:answer:".
	Prefix string
}

// Store implements cache.Store backed by Redis. It also implements
// clue/health.Pinger so the service health probe covers the cache backend.
type Store struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// New builds a Store from the provided options.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: opts.Client, ttl: ttl, prefix: prefix}, nil
}

// ClientOptions builds go-redis connection options from addr, accepting both
// redis:// (and rediss://) URLs and bare host:port forms. A non-empty
// password overrides any password embedded in the URL.
func ClientOptions(addr, password string) *goredis.Options {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{Addr: addr}
	}
	if password != "" {
		opts.Password = password
	}
	return opts
}

// Get implements cache.Store. Redis expires entries server-side, so a key
// past its TTL is simply absent.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	payload, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Put implements cache.Store.
func (s *Store) Put(ctx context.Context, key string, payload json.RawMessage) error {
	return s.rdb.Set(ctx, s.prefix+key, []byte(payload), s.ttl).Err()
}

// Name implements health.Pinger.
func (s *Store) Name() string {
	return "answer-cache-redis"
}

// Ping implements health.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
