// Package jobs contains the scheduled jobs run by the worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RankIndexWriter replaces the experience rank index and drops cached pages.
type RankIndexWriter interface {
	RebuildExperience(ctx context.Context, entries []progress.LeaderboardEntry) error
	InvalidateTop(ctx context.Context) error
}

// PageWarmer stores a ready leaderboard page under a page version.
type PageWarmer interface {
	TopVersion(ctx context.Context) (int64, error)
	SetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int, entries []progress.LeaderboardEntry) error
}

// RebuildLeaderboardJob resynchronises the Redis read side with the store.
// The event-driven projection can miss updates (Redis down, process crash);
// this job is the periodic full repair.
type RebuildLeaderboardJob struct {
	repo      progress.Repository
	index     RankIndexWriter
	warmer    PageWarmer
	publisher shared.EventPublisher
	log       *logger.Logger
	config    RebuildLeaderboardConfig
	now       func() time.Time

	lastStats atomic.Pointer[RebuildStats]
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// WarmLimit is the page size cached per category after the rebuild.
	// Zero disables warming.
	WarmLimit int

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		WarmLimit: 10,
		Timeout:   2 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	Duration    time.Duration
	Users       int
	PagesWarmed int
}

// NewRebuildLeaderboardJob creates a new rebuild job. warmer and publisher
// may be nil.
func NewRebuildLeaderboardJob(
	repo progress.Repository,
	index RankIndexWriter,
	warmer PageWarmer,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRebuildLeaderboardConfig().Timeout
	}
	return &RebuildLeaderboardJob{
		repo:      repo,
		index:     index,
		warmer:    warmer,
		publisher: publisher,
		log:       log.With(logger.Component("rebuild_leaderboard")),
		config:    config,
		now:       time.Now,
	}
}

// WithClock overrides the clock. Tests only.
func (j *RebuildLeaderboardJob) WithClock(now func() time.Time) *RebuildLeaderboardJob {
	j.now = now
	return j
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the Redis rank index from the progress store and warms leaderboard pages"
}

// LastStats returns the statistics of the last successful run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	return j.lastStats.Load()
}

// Run executes the rebuild.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	if j.index == nil {
		return errors.New("rebuild_leaderboard: rank index is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	started := j.now()
	stats := &RebuildStats{StartedAt: started}

	// ─── Step 1: Full experience ranking ─────────────────────────────────────
	all, err := j.repo.Leaderboard(ctx, progress.CategoryExperience, 0)
	if err != nil {
		return fmt.Errorf("load rankings: %w", err)
	}
	stats.Users = len(all)

	// ─── Step 2: Replace the rank index, drop stale pages ────────────────────
	if err := j.index.RebuildExperience(ctx, all); err != nil {
		return fmt.Errorf("rebuild rank index: %w", err)
	}
	if err := j.index.InvalidateTop(ctx); err != nil {
		return fmt.Errorf("invalidate pages: %w", err)
	}

	// ─── Step 3: Warm first pages ────────────────────────────────────────────
	warm := j.warmer != nil && j.config.WarmLimit > 0
	var version int64
	if warm {
		if version, err = j.warmer.TopVersion(ctx); err != nil {
			j.log.Warn("page version read failed, skipping warm", logger.Err(err))
			warm = false
		}
	}

	categories := make([]string, 0, len(progress.Categories))
	for _, c := range progress.Categories {
		categories = append(categories, c.String())
		if !warm {
			continue
		}
		entries, err := j.repo.Leaderboard(ctx, c, j.config.WarmLimit)
		if err != nil {
			return fmt.Errorf("load %s page: %w", c, err)
		}
		if err := j.warmer.SetTop(ctx, version, c, j.config.WarmLimit, entries); err != nil {
			j.log.Warn("page warm failed", logger.Category(c.String()), logger.Err(err))
			continue
		}
		stats.PagesWarmed++
	}

	stats.Duration = j.now().Sub(started)
	j.lastStats.Store(stats)

	j.log.Info("leaderboard rebuilt",
		logger.Int("users", stats.Users),
		logger.Int("pages_warmed", stats.PagesWarmed),
		logger.Latency(stats.Duration),
	)

	if j.publisher != nil {
		event := shared.NewLeaderboardRebuiltEvent(categories, stats.Users, stats.Duration, j.now())
		if err := j.publisher.Publish(event); err != nil {
			j.log.Warn("publish rebuild event failed", logger.Err(err))
		}
	}
	return nil
}
