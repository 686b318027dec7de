package redis

import (
	"context"
	"errors"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/circuitbreaker"
)

// leaderboardStore is the subset of LeaderboardCache that GuardedLeaderboard wraps.
type leaderboardStore interface {
	TopVersion(ctx context.Context) (int64, error)
	GetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error)
	SetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int, entries []progress.LeaderboardEntry) error
	InvalidateTop(ctx context.Context) error
	SetExperience(ctx context.Context, userID string, xp int) error
	Rank(ctx context.Context, userID string) (int64, error)
	Size(ctx context.Context) (int64, error)
}

var _ leaderboardStore = (*LeaderboardCache)(nil)

// GuardedLeaderboard runs every LeaderboardCache call through a circuit
// breaker. While the breaker is open calls fail fast with
// circuitbreaker.ErrCircuitOpen.
type GuardedLeaderboard struct {
	inner   leaderboardStore
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedLeaderboard wraps inner. A nil breaker gets the default cache
// breaker, which ignores cache misses and unknown users.
func NewGuardedLeaderboard(inner leaderboardStore, breaker *circuitbreaker.CircuitBreaker) *GuardedLeaderboard {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker("redis-leaderboard", IsExpected, nil)
	}
	return &GuardedLeaderboard{inner: inner, breaker: breaker}
}

// IsExpected reports errors that say nothing about Redis health.
func IsExpected(err error) bool {
	return errors.Is(err, shared.ErrCacheMiss) ||
		errors.Is(err, shared.ErrUserNotFound) ||
		errors.Is(err, ErrCacheKeyEmpty) ||
		errors.Is(err, context.Canceled)
}

// Breaker exposes the breaker for health reporting.
func (g *GuardedLeaderboard) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

func (g *GuardedLeaderboard) TopVersion(ctx context.Context) (int64, error) {
	var v int64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		v, err = g.inner.TopVersion(ctx)
		return err
	})
	return v, err
}

func (g *GuardedLeaderboard) GetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error) {
	var out []progress.LeaderboardEntry
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.GetTop(ctx, version, category, limit)
		return err
	})
	return out, err
}

func (g *GuardedLeaderboard) SetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int, entries []progress.LeaderboardEntry) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.SetTop(ctx, version, category, limit, entries)
	})
}

func (g *GuardedLeaderboard) InvalidateTop(ctx context.Context) error {
	return g.breaker.Execute(ctx, g.inner.InvalidateTop)
}

func (g *GuardedLeaderboard) SetExperience(ctx context.Context, userID string, xp int) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.SetExperience(ctx, userID, xp)
	})
}

func (g *GuardedLeaderboard) Rank(ctx context.Context, userID string) (int64, error) {
	var rank int64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		rank, err = g.inner.Rank(ctx, userID)
		return err
	})
	return rank, err
}

func (g *GuardedLeaderboard) Size(ctx context.Context) (int64, error) {
	var n int64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = g.inner.Size(ctx)
		return err
	})
	return n, err
}
