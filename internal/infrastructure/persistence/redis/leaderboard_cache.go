package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache keeps three structures in Redis:
//   - Counter "{ns}leaderboard:version" is the current page version
//   - String "{ns}leaderboard:top:{version}:{category}:{limit}" holds a ready page as JSON
//   - Sorted set "{ns}leaderboard:xp" maps user_id -> -experience
//
// Invalidation bumps the version, so a page computed from a store read that
// started before the bump lands under the old version and is never served.
// Old pages expire with their TTL.
//
// Scores are negated so that ZRANK orders by experience descending and, on
// equal experience, by user_id ascending. That matches the store ordering.
type LeaderboardCache struct {
	cache     *Cache
	namespace string
	ttl       time.Duration
}

// LeaderboardCacheConfig contains configuration for LeaderboardCache.
type LeaderboardCacheConfig struct {
	// Namespace is prepended to every key, e.g. "progress-hub:".
	Namespace string

	// TTL of cached pages. Defaults to TTLLeaderboardCache.
	TTL time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache, cfg LeaderboardCacheConfig) *LeaderboardCache {
	if cfg.TTL <= 0 {
		cfg.TTL = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, namespace: cfg.Namespace, ttl: cfg.TTL}
}

func (l *LeaderboardCache) topKey(version int64, category progress.LeaderboardCategory, limit int) string {
	return fmt.Sprintf("%s%stop:%d:%s:%d", l.namespace, PrefixLeaderboard, version, category, limit)
}

func (l *LeaderboardCache) versionKey() string {
	return l.namespace + PrefixLeaderboard + "version"
}

func (l *LeaderboardCache) xpKey() string {
	return l.namespace + PrefixLeaderboard + "xp"
}

// ─── Cached pages ───────────────────────────────────────────────────────────

// TopVersion returns the current page version, 0 before the first
// invalidation. Read it before loading a page from the store.
func (l *LeaderboardCache) TopVersion(ctx context.Context) (int64, error) {
	v, err := l.cache.Client().Get(ctx, l.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// GetTop returns a cached page of the given version or ErrCacheMiss.
func (l *LeaderboardCache) GetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error) {
	var entries []progress.LeaderboardEntry
	if err := l.cache.Get(ctx, l.topKey(version, category, limit), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []progress.LeaderboardEntry{}
	}
	return entries, nil
}

// SetTop caches a page under the version read before the page was loaded.
func (l *LeaderboardCache) SetTop(ctx context.Context, version int64, category progress.LeaderboardCategory, limit int, entries []progress.LeaderboardEntry) error {
	return l.cache.Set(ctx, l.topKey(version, category, limit), entries, l.ttl)
}

// InvalidateTop retires every cached page by bumping the version.
func (l *LeaderboardCache) InvalidateTop(ctx context.Context) error {
	return l.cache.Client().Incr(ctx, l.versionKey()).Err()
}

// ─── Rank index ─────────────────────────────────────────────────────────────

// SetExperience records the experience total of a user. O(log N).
func (l *LeaderboardCache) SetExperience(ctx context.Context, userID string, xp int) error {
	if userID == "" {
		return shared.ErrEmptyUserID
	}
	return l.cache.Client().ZAdd(ctx, l.xpKey(), redis.Z{
		Score:  -float64(xp),
		Member: userID,
	}).Err()
}

// Rank returns the 1-based experience rank of a user.
// Returns shared.ErrUserNotFound if the user is not indexed.
func (l *LeaderboardCache) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := l.cache.Client().ZRank(ctx, l.xpKey(), userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrUserNotFound
		}
		return 0, err
	}
	return rank + 1, nil
}

// Size returns the number of indexed users.
func (l *LeaderboardCache) Size(ctx context.Context) (int64, error) {
	return l.cache.Client().ZCard(ctx, l.xpKey()).Result()
}

// RebuildExperience replaces the rank index with entries atomically.
func (l *LeaderboardCache) RebuildExperience(ctx context.Context, entries []progress.LeaderboardEntry) error {
	key := l.xpKey()
	if len(entries) == 0 {
		return l.cache.Delete(ctx, key)
	}

	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Score: -float64(e.ExperiencePoints), Member: e.UserID})
	}

	tmp := key + ":rebuild"
	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, tmp)
	pipe.ZAdd(ctx, tmp, members...)
	pipe.Rename(ctx, tmp, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild rank index: %w", err)
	}
	return nil
}
