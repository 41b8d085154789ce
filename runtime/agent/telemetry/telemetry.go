// Package telemetry integrates the agent workflow with Clue logging and OTEL
// metrics.
package telemetry

import (
	"context"
	"time"
)

// Logger captures structured logging used throughout the agent runtime.
// Implementations typically delegate to Clue but the interface is
// intentionally small so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for workflow
// instrumentation. This is low-level plumbing distinct from the domain
// metrics collector: the collector answers the metrics endpoint, these feed
// whatever OTEL pipeline the process is configured with.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
}
