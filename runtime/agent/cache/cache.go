// Package cache defines the result cache consumed by the agent workflow.
//
// The Store interface abstracts answer caching with time-based expiry,
// allowing different backend implementations. Available implementations:
//
//   - inmem: process-lifetime map for development and testing
//   - features/cache/redis: Redis store for production deployments
//
// Cached state is advisory: a Store failure must never fail a request, so
// callers treat Get/Put errors as misses. In-memory cache contents do not
// survive a process restart.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// DefaultTTL is the expiry applied when a Store is constructed without an
// explicit TTL.
const DefaultTTL = 300 * time.Second

// Store persists computed answers keyed by KeyFor. Implementations must be
// safe for concurrent use from independent sessions and must serialize the
// expiry check with eviction so a stale entry is never returned.
type Store interface {
	// Get returns the payload for key. The second return is false when no
	// entry exists or the entry has outlived the store TTL; expired entries
	// are evicted as a side effect.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Put inserts or replaces the entry for key, stamping it with the
	// current time. Entries are replaced whole, never patched.
	Put(ctx context.Context, key string, payload json.RawMessage) error
}

// KeyFor derives the cache key for a tenant and a question or query text.
// The derivation is deterministic and content-hashed: identical inputs always
// produce identical keys, and distinct tenants never share a key for the same
// text. Text is normalized (lower-cased, whitespace collapsed) so trivial
// reformulations hit the same entry.
func KeyFor(tenant, text string) string {
	h := sha256.New()
	h.Write([]byte(tenant))
	h.Write([]byte{0})
	h.Write([]byte(normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
