// Package provider defines the normalized completion contract and the
// per-upstream adapters that implement it.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the upstream returned 2xx but the expected
// text path was missing or empty.
var ErrMalformedResponse = errors.New("completion response missing expected text")

// NetworkError wraps transport-level failures: connection refused, DNS,
// timeouts, cancelled contexts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UpstreamError carries a non-2xx upstream status together with the raw
// response body for server-side logging. The body must never be forwarded to
// an end-user surface.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream rejected completion with status %d: %s", e.StatusCode, e.Body)
}

// Config is the per-provider completion configuration, resolved once from
// the environment at startup and passed explicitly on every call.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Request is the normalized completion input. ConversationID is only used by
// providers that keep server-side conversation state.
type Request struct {
	Prompt         string
	ConversationID string
}

// Completion is the normalized completion output. ConversationID is set when
// the upstream returned a session identifier to use on the next turn.
type Completion struct {
	Text           string
	ConversationID string
}

// Provider adapts the normalized contract to one upstream completion API.
// Implementations classify every failure as *NetworkError, *UpstreamError,
// or ErrMalformedResponse.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request, cfg Config) (*Completion, error)
}
