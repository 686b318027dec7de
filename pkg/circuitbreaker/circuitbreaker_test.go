package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDown = errors.New("connection refused")
	errMiss = errors.New("cache miss")
)

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var transitions []string
	cb := New("redis",
		WithFailureThreshold(2),
		WithSuccessThreshold(1),
		WithCooldown(10*time.Second),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.True(t, cb.IsClosed())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.True(t, cb.IsOpen())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(11 * time.Second)
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("redis", WithFailureThreshold(1), WithCooldown(time.Second))
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	now = now.Add(2 * time.Second)
	_ = cb.Execute(ctx, fail)
	assert.True(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestCacheBreaker_ExpectedErrorsDoNotTrip(t *testing.T) {
	cb := CacheBreaker("cache", func(err error) bool { return errors.Is(err, errMiss) }, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return errMiss }), errMiss)
	}
	assert.True(t, cb.IsClosed())
	assert.Equal(t, 10, cb.Counts().TotalSuccesses)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	assert.True(t, cb.IsOpen())

	cb.Reset()
	assert.True(t, cb.IsClosed())
}

func TestCircuitBreaker_SingleProbeWhileHalfOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("x", WithFailureThreshold(1), WithSuccessThreshold(1), WithCooldown(time.Second))
	cb.now = func() time.Time { return now }
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)

	now = now.Add(2 * time.Second)
	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, cb.IsClosed())
}

func TestCircuitBreaker_DefaultConfigClosesAfterSuccessfulProbes(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("x")
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.True(t, cb.IsOpen())

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
	assert.True(t, cb.IsClosed())

	for i := 0; i < 3; i++ {
		assert.NoError(t, cb.Execute(ctx, ok))
	}
}

func TestCircuitBreaker_StaleCallDoesNotCloseHalfOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("x", WithFailureThreshold(1), WithCooldown(time.Second))
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	// A call admitted while closed finishes after the breaker went half-open.
	err := cb.Execute(ctx, func(ctx context.Context) error {
		_ = cb.Execute(ctx, fail)
		now = now.Add(2 * time.Second)
		require.NoError(t, cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		}))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.Equal(t, 0, cb.probes)
}
