package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(retryTimeout time.Duration) *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RetryTimeout:     retryTimeout,
	}, nil)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := testBreaker(time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom }, nil)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(func() error { return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return boom }, nil)
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }, nil))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(func() error { return nil }, nil))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerIgnoresUncountedFailures(t *testing.T) {
	cb := testBreaker(time.Minute)
	expected := errors.New("caller mistake")

	never := func(error) bool { return false }
	for i := 0; i < 10; i++ {
		err := cb.Execute(func() error { return expected }, never)
		assert.ErrorIs(t, err, expected)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Minute)
	boom := errors.New("boom")

	_ = cb.Execute(func() error { return boom }, nil)
	_ = cb.Execute(func() error { return boom }, nil)
	require.NoError(t, cb.Execute(func() error { return nil }, nil))

	_ = cb.Execute(func() error { return boom }, nil)
	_ = cb.Execute(func() error { return boom }, nil)
	assert.Equal(t, StateClosed, cb.GetState())
}
