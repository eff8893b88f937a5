package llm

import (
	"context"
	"errors"
)

// Client abstracts the completion provider used for resume critique.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Message is one entry of the chat transcript sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Failure classification for a completion call. The service does not retry
// internally; callers decide what a retryable failure means to them.
var (
	ErrBadRequest            = errors.New("llm: bad request")
	ErrUnauthorized          = errors.New("llm: invalid credential")
	ErrRateLimited           = errors.New("llm: rate limited")
	ErrInvalidResponseFormat = errors.New("llm: invalid response format")
	ErrUpstream              = errors.New("llm: upstream failure")
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm: client not configured")

// PlaceholderClient is used when no provider credential is configured; the
// analysis feature then fails at call time rather than at startup.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message) (string, error) {
	_ = ctx
	_ = messages
	return "", ErrNotConfigured
}
