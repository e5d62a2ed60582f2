package provider

import (
	"context"
	"errors"

	"character-chat-relay/pkg/resilience"
)

// Resilient wraps a Provider with a circuit breaker. Transport failures and
// upstream 5xx responses trip the breaker; caller mistakes (4xx) and
// malformed-but-successful responses do not.
type Resilient struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
}

// NewResilient wraps inner with the given breaker.
func NewResilient(inner Provider, breaker *resilience.CircuitBreaker) *Resilient {
	return &Resilient{inner: inner, breaker: breaker}
}

func (r *Resilient) Name() string {
	return r.inner.Name()
}

func (r *Resilient) Complete(ctx context.Context, req Request, cfg Config) (*Completion, error) {
	var completion *Completion

	err := r.breaker.Execute(func() error {
		var err error
		completion, err = r.inner.Complete(ctx, req, cfg)
		return err
	}, countsAsOutage)
	if err != nil {
		return nil, err
	}
	return completion, nil
}

func countsAsOutage(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= 500
	}
	return false
}
