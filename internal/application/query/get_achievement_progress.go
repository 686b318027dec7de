package query

import (
	"context"
	"fmt"

	"github.com/resume-analyzer/progress-hub/internal/domain/achievement"
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
)

// GetAchievementProgressHandler reports how close a user is to every
// achievement not yet earned.
type GetAchievementProgressHandler struct {
	repo      progress.Repository
	evaluator *achievement.Evaluator
}

// NewGetAchievementProgressHandler creates a new handler.
func NewGetAchievementProgressHandler(repo progress.Repository, evaluator *achievement.Evaluator) *GetAchievementProgressHandler {
	return &GetAchievementProgressHandler{repo: repo, evaluator: evaluator}
}

// Handle returns the progress of every unearned achievement keyed by
// achievement id.
func (h *GetAchievementProgressHandler) Handle(ctx context.Context, userID string) (map[string]achievement.Progress, error) {
	p, err := loadProgress(ctx, h.repo, userID)
	if err != nil {
		return nil, fmt.Errorf("get_achievement_progress: %w", err)
	}
	items := h.evaluator.Progress(p)
	byID := make(map[string]achievement.Progress, len(items))
	for _, item := range items {
		byID[item.Achievement.ID] = item
	}
	return byID, nil
}

// ListAchievementsHandler returns the static catalog.
type ListAchievementsHandler struct {
	catalog *achievement.Catalog
}

// NewListAchievementsHandler creates a new handler.
func NewListAchievementsHandler(catalog *achievement.Catalog) *ListAchievementsHandler {
	return &ListAchievementsHandler{catalog: catalog}
}

// Handle returns every definition in catalog order.
func (h *ListAchievementsHandler) Handle(context.Context) []achievement.Definition {
	return h.catalog.All()
}
