package query

import (
	"context"
	"fmt"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Position of a user in the experience leaderboard, read from the rank index.
// Without an index (Redis disabled) every user is reported as unranked.
// ══════════════════════════════════════════════════════════════════════════════

// RankIndex answers experience rank lookups.
// Rank returns shared.ErrUserNotFound for users missing from the index.
type RankIndex interface {
	Rank(ctx context.Context, userID string) (int64, error)
	Size(ctx context.Context) (int64, error)
}

// UserRankDTO is the rank response.
type UserRankDTO struct {
	UserID string `json:"user_id"`

	// Rank - 1-based position; 0 when unranked.
	Rank   int  `json:"rank"`
	Ranked bool `json:"ranked"`

	// TotalUsers - number of users in the index.
	TotalUsers int64 `json:"total_users"`

	// Percentile - share of users at or below this position, 0..100.
	Percentile float64 `json:"percentile"`

	Medal string `json:"medal,omitempty"`

	ExperiencePoints int     `json:"experience_points"`
	Level            int     `json:"level"`
	XPToNextLevel    int     `json:"xp_to_next_level"`
	LevelProgress    float64 `json:"level_progress"`
}

// GetUserRankHandler handles rank queries.
type GetUserRankHandler struct {
	repo  progress.Repository
	index RankIndex
	log   *logger.Logger
}

// NewGetUserRankHandler creates a new handler. index may be nil.
func NewGetUserRankHandler(repo progress.Repository, index RankIndex, log *logger.Logger) *GetUserRankHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetUserRankHandler{
		repo:  repo,
		index: index,
		log:   log.With(logger.Component("get_user_rank")),
	}
}

// Handle executes the query.
func (h *GetUserRankHandler) Handle(ctx context.Context, userID string) (*UserRankDTO, error) {
	p, err := loadProgress(ctx, h.repo, userID)
	if err != nil {
		return nil, fmt.Errorf("get_user_rank: %w", err)
	}

	info := progress.DescribeLevel(p.ExperiencePoints)
	dto := &UserRankDTO{
		UserID:           p.UserID,
		ExperiencePoints: p.ExperiencePoints,
		Level:            info.Level,
		XPToNextLevel:    info.XPForNextLevel,
		LevelProgress:    info.Progress,
	}

	rank := h.lookup(ctx, p.UserID)
	if rank.IsUnranked() {
		return dto, nil
	}

	dto.Rank = rank.Int()
	dto.Ranked = true
	dto.Medal = rank.Medal()

	total, err := h.index.Size(ctx)
	if err != nil {
		h.log.Warn("rank index size failed", logger.UserID(p.UserID), logger.Err(err))
		return dto, nil
	}
	dto.TotalUsers = total
	if total > 0 {
		dto.Percentile = float64(total-int64(dto.Rank)+1) / float64(total) * 100
	}
	return dto, nil
}

func (h *GetUserRankHandler) lookup(ctx context.Context, userID string) shared.Rank {
	if h.index == nil {
		return shared.Unranked
	}
	pos, err := h.index.Rank(ctx, userID)
	if err != nil {
		if !shared.IsNotFound(err) {
			h.log.Warn("rank lookup failed", logger.UserID(userID), logger.Err(err))
		}
		return shared.Unranked
	}
	rank, err := shared.NewRank(int(pos))
	if err != nil {
		return shared.Unranked
	}
	return rank
}
