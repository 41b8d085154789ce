// Package openai provides a model.Client implementation backed by the OpenAI
// Chat Completions API using github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/storelens/storelens/runtime/agent/model"
)

// ChatClient captures the subset of the go-openai client used by the adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (
		goopenai.ChatCompletionResponse, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	// Client is the chat completion client. Required.
	Client ChatClient
	// Model is the model identifier, e.g. "gpt-4o-mini". Required.
	Model string
	// Temperature controls sampling; zero means greedy decoding, which
	// suits query generation.
	Temperature float32
	// MaxTokens caps the completion length; zero uses the provider default.
	MaxTokens int
}

// Client implements model.Client via the OpenAI Chat Completions API.
type Client struct {
	chat        ChatClient
	model       string
	temperature float32
	maxTokens   int
}

// New builds an OpenAI-backed generation client from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	return &Client{
		chat:        opts.Client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// NewFromAPIKey constructs a client using the default go-openai HTTP client.
func NewFromAPIKey(apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return New(Options{Client: goopenai.NewClient(apiKey), Model: modelID})
}

// Generate implements model.Client.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return "", &model.ProviderError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &model.ProviderError{Provider: "openai", Err: errors.New("no completion choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}
