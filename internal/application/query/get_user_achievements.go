package query

import (
	"context"
	"fmt"

	"github.com/resume-analyzer/progress-hub/internal/domain/achievement"
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER ACHIEVEMENTS QUERY
// Earned achievements in the order they were earned, each with its unlock
// date from the unlock log. Ids no longer in the catalog are skipped.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserAchievementsHandler handles the query.
type GetUserAchievementsHandler struct {
	repo    progress.Repository
	catalog *achievement.Catalog
}

// NewGetUserAchievementsHandler creates a new handler.
func NewGetUserAchievementsHandler(repo progress.Repository, catalog *achievement.Catalog) *GetUserAchievementsHandler {
	return &GetUserAchievementsHandler{repo: repo, catalog: catalog}
}

// Handle executes the query.
func (h *GetUserAchievementsHandler) Handle(ctx context.Context, userID string) ([]achievement.EarnedAchievement, error) {
	p, err := loadProgress(ctx, h.repo, userID)
	if err != nil {
		return nil, fmt.Errorf("get_user_achievements: %w", err)
	}

	out := make([]achievement.EarnedAchievement, 0, len(p.AchievementsEarned))
	if len(p.AchievementsEarned) == 0 {
		return out, nil
	}

	unlocks, err := h.repo.Unlocks(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_achievements: %w", err)
	}
	unlockedAt := make(map[string]progress.AchievementUnlock, len(unlocks))
	for _, u := range unlocks {
		if _, seen := unlockedAt[u.AchievementID]; !seen {
			unlockedAt[u.AchievementID] = u
		}
	}

	for _, id := range p.AchievementsEarned {
		def, ok := h.catalog.Get(id)
		if !ok {
			continue
		}
		earned := achievement.EarnedAchievement{Definition: def}
		if u, ok := unlockedAt[id]; ok {
			earned.UnlockedAt = u.UnlockedAt
		}
		out = append(out, earned)
	}
	return out, nil
}
