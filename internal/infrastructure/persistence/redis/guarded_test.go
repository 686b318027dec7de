package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/circuitbreaker"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) TopVersion(context.Context) (int64, error) {
	f.calls++
	return 0, f.err
}
func (f *flakyStore) GetTop(context.Context, int64, progress.LeaderboardCategory, int) ([]progress.LeaderboardEntry, error) {
	f.calls++
	return nil, f.err
}
func (f *flakyStore) SetTop(context.Context, int64, progress.LeaderboardCategory, int, []progress.LeaderboardEntry) error {
	f.calls++
	return f.err
}
func (f *flakyStore) InvalidateTop(context.Context) error {
	f.calls++
	return f.err
}
func (f *flakyStore) SetExperience(context.Context, string, int) error {
	f.calls++
	return f.err
}
func (f *flakyStore) Rank(context.Context, string) (int64, error) {
	f.calls++
	return 0, f.err
}
func (f *flakyStore) Size(context.Context) (int64, error) {
	f.calls++
	return 0, f.err
}

func TestGuardedLeaderboard_MissesDoNotTrip(t *testing.T) {
	inner := &flakyStore{err: shared.ErrCacheMiss}
	g := NewGuardedLeaderboard(inner, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := g.GetTop(ctx, 0, progress.CategoryExperience, 10)
		assert.ErrorIs(t, err, shared.ErrCacheMiss)
	}
	inner.err = shared.ErrUserNotFound
	_, err := g.Rank(ctx, "ghost")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	assert.True(t, g.Breaker().IsClosed())
	assert.Equal(t, 11, inner.calls)
}

func TestGuardedLeaderboard_OpensOnOutage(t *testing.T) {
	inner := &flakyStore{err: errors.New("dial tcp: connection refused")}
	g := NewGuardedLeaderboard(inner, nil)
	ctx := context.Background()

	assert.Error(t, g.SetExperience(ctx, "alice", 10))
	assert.Error(t, g.InvalidateTop(ctx))
	_, err := g.Size(ctx)
	assert.Error(t, err)
	assert.True(t, g.Breaker().IsOpen())

	err = g.SetTop(ctx, 0, progress.CategoryLevel, 10, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 3, inner.calls)
}
