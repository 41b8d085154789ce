// Package datasource defines the commerce data-source interface consumed by
// the agent workflow. The production implementation over the Shopify Admin
// GraphQL API lives in features/datasource/shopify; tests use stubs.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type (
	// Source retrieves commerce data for a tenant. Implementations carry
	// their own endpoint and credential; all calls are blocking I/O and must
	// honor ctx deadlines.
	Source interface {
		// FetchOrders returns up to limit recent orders.
		FetchOrders(ctx context.Context, limit int) ([]Order, error)
		// FetchProducts returns up to limit products.
		FetchProducts(ctx context.Context, limit int) ([]Product, error)
		// ExecuteQuery runs a validated analytics query string and returns
		// the raw result document. Implementations dispatch on the query
		// text: order/sales/revenue terms target orders, product/inventory/
		// stock terms target products, anything else defaults to orders.
		ExecuteQuery(ctx context.Context, queryText string) (json.RawMessage, error)
	}

	// Provider builds tenant-scoped Sources. The agent resolves a Source
	// per request from the session's tenant and pass-through credential.
	Provider interface {
		Source(tenant, credential string) Source
	}

	// Order is a single commerce order as exposed to the synthesis step.
	Order struct {
		ID          string    `json:"id"`
		NetSales    float64   `json:"net_sales"`
		CreatedAt   time.Time `json:"created_at"`
		ProcessedAt time.Time `json:"processed_at,omitzero"`
	}

	// Product is a single catalog product as exposed to the synthesis step.
	Product struct {
		Title          string `json:"product_title"`
		Type           string `json:"product_type"`
		TotalInventory int    `json:"total_inventory"`
	}

	// ErrorKind partitions data-source failures for metrics and retry
	// decisions.
	ErrorKind string

	// DataError is the tagged failure returned by Source implementations.
	// It always carries the underlying message; callers never see an
	// untyped fault from the data layer.
	DataError struct {
		Kind    ErrorKind
		Message string
		Err     error
	}
)

const (
	// ErrKindConnectivity covers transport-level failures reaching the
	// backend.
	ErrKindConnectivity ErrorKind = "connectivity"
	// ErrKindBackend covers errors reported by the backend itself, e.g. a
	// rejected query. Retryable in the plan-and-generate loop.
	ErrKindBackend ErrorKind = "backend"
	// ErrKindResponse covers responses the client could not interpret.
	ErrKindResponse ErrorKind = "response"
)

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("data source %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("data source %s error", e.Kind)
}

// Unwrap returns the wrapped cause, if any.
func (e *DataError) Unwrap() error {
	return e.Err
}

// NewError builds a DataError from a kind and cause.
func NewError(kind ErrorKind, cause error) *DataError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &DataError{Kind: kind, Message: msg, Err: cause}
}

// Errorf builds a DataError with a formatted message and no cause.
func Errorf(kind ErrorKind, format string, args ...any) *DataError {
	return &DataError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
