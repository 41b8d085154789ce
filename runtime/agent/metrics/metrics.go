// Package metrics tracks request-level analytics for the agent service. The
// Collector is an explicitly constructed, injected component; it owns all of
// its synchronization and is never exposed as package-level state. Recording
// is best-effort: it cannot fail a request.
package metrics

import "time"

// Sample describes one completed request.
type Sample struct {
	// Tenant identifies the store the request was issued for.
	Tenant string
	// Success is false for hard request failures only; degraded answers
	// count as successes.
	Success bool
	// Latency is the end-to-end request duration.
	Latency time.Duration
	// Intent is the classified question category; empty when classification
	// never ran.
	Intent string
	// ErrorKind partitions failures; empty on success.
	ErrorKind string
	// CacheHit reports whether the answer was served from the cache.
	CacheHit bool
}

// Sink receives completed request samples. Implementations must serialize
// their own state internally; Record is called from request goroutines and
// must not block them.
type Sink interface {
	Record(sample Sample)
}

// Noop is a Sink that discards samples. Useful in tests.
type Noop struct{}

// Record implements Sink.
func (Noop) Record(Sample) {}
