// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API using github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/storelens/storelens/runtime/agent/model"
)

// defaultMaxTokens caps completions when Options.MaxTokens is unset. Answers
// are short business prose, so the default is modest.
const defaultMaxTokens = 1024

// MessagesClient captures the subset of the Anthropic SDK client used by the
// adapter. It is satisfied by *sdk.MessageService so callers can pass either
// a real client or a stub in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	// Model is the Claude model identifier. Required.
	Model string
	// MaxTokens caps the completion length; zero uses defaultMaxTokens.
	MaxTokens int
	// Temperature is forwarded when positive.
	Temperature float64
}

// Client implements model.Client on top of Anthropic Claude Messages.
type Client struct {
	msg         MessagesClient
	model       string
	maxTokens   int
	temperature float64
}

// New builds an Anthropic-backed generation client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		msg:         msg,
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{Model: modelID})
}

// Generate implements model.Client.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return "", &model.ProviderError{Provider: "anthropic", Err: err}
	}
	if msg == nil {
		return "", &model.ProviderError{Provider: "anthropic", Err: errors.New("nil response message")}
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := b.String()
	if out == "" {
		return "", &model.ProviderError{Provider: "anthropic", Err: errors.New("response contained no text blocks")}
	}
	return out, nil
}
