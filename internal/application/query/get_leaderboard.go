// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top-N users of a category. Reads through the leaderboard cache
// when one is configured; cache failures fall back to the store.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultLeaderboardLimit is used when no positive limit is given.
	DefaultLeaderboardLimit = 10

	// MaxLeaderboardLimit caps a single leaderboard page.
	MaxLeaderboardLimit = 100
)

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Category - ordering; unknown values fall back to experience.
	Category string

	// Limit - number of entries (default 10, max 100).
	Limit int
}

// Normalize applies defaults and bounds.
func (q *GetLeaderboardQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultLeaderboardLimit
	}
	if q.Limit > MaxLeaderboardLimit {
		q.Limit = MaxLeaderboardLimit
	}
	q.Category = progress.ParseCategory(q.Category).String()
}

// GetLeaderboardResult contains the leaderboard response.
type GetLeaderboardResult struct {
	Category    string                      `json:"category"`
	Limit       int                         `json:"limit"`
	Entries     []progress.LeaderboardEntry `json:"entries"`
	FromCache   bool                        `json:"from_cache"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// LeaderboardCache stores ready leaderboard pages per version. Invalidation
// moves the version on, so a page is written under the version read before
// its store load. GetTop returns shared.ErrCacheMiss when nothing is cached.
type LeaderboardCache interface {
	TopVersion(ctx context.Context) (int64, error)
	GetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error)
	SetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int, entries []progress.LeaderboardEntry) error
}

// GetLeaderboardHandler handles leaderboard queries.
type GetLeaderboardHandler struct {
	repo  progress.Repository
	cache LeaderboardCache
	log   *logger.Logger
}

// NewGetLeaderboardHandler creates a new handler. cache may be nil.
func NewGetLeaderboardHandler(repo progress.Repository, cache LeaderboardCache, log *logger.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetLeaderboardHandler{
		repo:  repo,
		cache: cache,
		log:   log.With(logger.Component("get_leaderboard")),
	}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	q.Normalize()
	category := progress.LeaderboardCategory(q.Category)

	result := &GetLeaderboardResult{
		Category:    q.Category,
		Limit:       q.Limit,
		GeneratedAt: time.Now().UTC(),
	}

	version, cached := h.cacheVersion(ctx)
	if cached {
		if entries, ok := h.fromCache(ctx, version, category, q.Limit); ok {
			result.Entries = entries
			result.FromCache = true
			return result, nil
		}
	}

	entries, err := h.repo.Leaderboard(ctx, category, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}
	if entries == nil {
		entries = []progress.LeaderboardEntry{}
	}
	result.Entries = entries

	if cached {
		if err := h.cache.SetTop(ctx, version, category, q.Limit, entries); err != nil {
			h.log.Warn("failed to cache leaderboard", logger.Category(q.Category), logger.Err(err))
		}
	}

	return result, nil
}

// cacheVersion reports the current page version and whether the cache is usable.
func (h *GetLeaderboardHandler) cacheVersion(ctx context.Context) (int64, bool) {
	if h.cache == nil {
		return 0, false
	}
	version, err := h.cache.TopVersion(ctx)
	if err != nil {
		h.log.Warn("leaderboard cache version read failed", logger.Err(err))
		return 0, false
	}
	return version, true
}

func (h *GetLeaderboardHandler) fromCache(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, bool) {
	entries, err := h.cache.GetTop(ctx, version, category, limit)
	if err != nil {
		if !isCacheMiss(err) {
			h.log.Warn("leaderboard cache read failed", logger.Category(category.String()), logger.Err(err))
		}
		return nil, false
	}
	return entries, true
}
