// Package model defines the text-generation interface consumed by the agent
// workflow. It abstracts over provider SDKs (OpenAI, Anthropic) so the
// orchestrator can request completions without coupling to a specific
// vendor. Implementations live under features/model.
package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrRateLimited marks failures where the provider throttled the request.
// Adapters wrap throttling responses with this sentinel so rate-limit
// middleware can react via errors.Is.
var ErrRateLimited = errors.New("provider rate limited")

// Client is the single-shot text-generation contract. Calls are stateless:
// the caller supplies all needed context in the prompt, and no implicit
// conversation state is kept between calls. Implementations must be safe for
// concurrent use and must honor ctx cancellation and deadlines.
type Client interface {
	// Generate returns the model's completion for prompt. Failures are
	// returned as *ProviderError so callers can distinguish generation
	// faults from their own.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderError reports a text-generation failure with its originating
// provider. It wraps the SDK error for errors.Is/As inspection.
type ProviderError struct {
	// Provider names the backing service, e.g. "openai" or "anthropic".
	Provider string
	// Err is the underlying SDK error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying SDK error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
