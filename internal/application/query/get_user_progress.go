package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// UserProgressView is the progress record plus derived level figures.
type UserProgressView struct {
	*progress.UserProgress
	LevelInfo progress.LevelInfo `json:"level_info"`
}

// GetUserProgressHandler returns the current record of a user.
// Unknown users get the default record; nothing is persisted.
type GetUserProgressHandler struct {
	repo progress.Repository
}

// NewGetUserProgressHandler creates a new handler.
func NewGetUserProgressHandler(repo progress.Repository) *GetUserProgressHandler {
	return &GetUserProgressHandler{repo: repo}
}

// Handle executes the query.
func (h *GetUserProgressHandler) Handle(ctx context.Context, userID string) (*UserProgressView, error) {
	p, err := loadProgress(ctx, h.repo, userID)
	if err != nil {
		return nil, fmt.Errorf("get_user_progress: %w", err)
	}
	return &UserProgressView{
		UserProgress: p,
		LevelInfo:    progress.DescribeLevel(p.ExperiencePoints),
	}, nil
}

// loadProgress validates the id and loads the record.
func loadProgress(ctx context.Context, repo progress.Repository, rawUserID string) (*progress.UserProgress, error) {
	userID, err := shared.NewUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	p, err := repo.Get(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	p.RecalculateLevel()
	return p, nil
}

func isCacheMiss(err error) bool {
	return errors.Is(err, shared.ErrCacheMiss)
}
