package agent

import (
	"fmt"
)

// ErrorKind partitions the workflow failure taxonomy. Only KindDataSource (in
// direct mode) and KindExhaustedRetries surface as request-level errors; the
// other kinds are absorbed into degraded-but-successful answers.
type ErrorKind string

const (
	// KindPlanning marks a failed planning step. Non-fatal: the workflow
	// proceeds without a plan.
	KindPlanning ErrorKind = "planning"
	// KindValidation marks a generated query the validator rejected.
	// Retryable: the violations feed the next generation attempt.
	KindValidation ErrorKind = "validation"
	// KindDataSource marks a commerce-backend failure. Retryable in
	// plan-and-generate mode, fatal to the request in direct mode.
	KindDataSource ErrorKind = "data_source"
	// KindGeneration marks a text-generation failure during synthesis.
	// Non-fatal: the answer degrades to a fixed fallback.
	KindGeneration ErrorKind = "generation"
	// KindExhaustedRetries marks a plan-and-generate loop that consumed its
	// attempt budget. Terminal.
	KindExhaustedRetries ErrorKind = "exhausted_retries"
)

// RequestError is the structured error surfaced to the serving boundary. It
// always carries a human-readable suggestion, never a stack trace or raw
// protocol text.
type RequestError struct {
	// Kind is the taxonomy bucket, used for metrics and client dispatch.
	Kind ErrorKind
	// Message summarizes what went wrong in user-safe terms.
	Message string
	// Suggestion tells the user what to try instead.
	Suggestion string
	// Attempts is set for exhausted-retry errors.
	Attempts int
	// Err is the underlying cause, preserved for logs and errors.Is/As.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

func dataSourceError(cause error) *RequestError {
	return &RequestError{
		Kind:       KindDataSource,
		Message:    "could not retrieve data from your store",
		Suggestion: "verify the store connection and try again",
		Err:        cause,
	}
}

func exhaustedError(attempts int, last error) *RequestError {
	msg := "could not produce a valid query for your question"
	if last != nil {
		msg = last.Error()
	}
	return &RequestError{
		Kind:       KindExhaustedRetries,
		Message:    msg,
		Suggestion: "try rephrasing your question or asking about a different date range",
		Attempts:   attempts,
		Err:        last,
	}
}
