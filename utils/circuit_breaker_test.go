package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		err := cb.Do(ctx, func(ctx context.Context) error { return nil })
		require.NoError(t, err)
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_TripsAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 10; i++ {
		err := cb.Do(ctx, func(ctx context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())

	// an open breaker fails fast without calling through
	called := false
	err := cb.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_FewFailuresDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Do(ctx, func(ctx context.Context) error { return boom })
	}

	assert.Equal(t, StateClosed, cb.State())
}
