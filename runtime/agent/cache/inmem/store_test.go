package inmem

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/runtime/agent/cache"
)

func TestRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := cache.KeyFor("shop-1", "total sales?")

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"answer":"$150"}`)))

	payload, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"answer":"$150"}`, string(payload))
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(WithTTL(300*time.Second), WithClock(clock))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", json.RawMessage(`1`)))

	now = now.Add(299 * time.Second)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok, "entry younger than TTL must be served")

	now = now.Add(1 * time.Second)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "entry at TTL age must be treated as absent")
	require.Equal(t, 0, s.Len(), "expired entry must be evicted on lookup")
}

func TestReplaceOnWrite(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", json.RawMessage(`"old"`)))
	now = now.Add(59 * time.Second)
	require.NoError(t, s.Put(ctx, "k", json.RawMessage(`"new"`)))

	// The rewrite refreshed the timestamp.
	now = now.Add(30 * time.Second)
	payload, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `"new"`, string(payload))
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := cache.KeyFor("shop", string(rune('a'+n%4)))
			for j := 0; j < 100; j++ {
				_ = s.Put(ctx, key, json.RawMessage(`{}`))
				_, _, _ = s.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
