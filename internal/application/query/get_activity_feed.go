package query

import (
	"context"
	"fmt"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

const (
	// DefaultFeedLimit is used when no positive limit is given.
	DefaultFeedLimit = 20

	// MaxFeedLimit caps a single feed page.
	MaxFeedLimit = 100
)

// GetActivityFeedQuery contains the feed request parameters.
type GetActivityFeedQuery struct {
	UserID string
	Limit  int
}

// GetActivityFeedHandler returns the latest activity log entries of a user.
type GetActivityFeedHandler struct {
	repo progress.Repository
}

// NewGetActivityFeedHandler creates a new handler.
func NewGetActivityFeedHandler(repo progress.Repository) *GetActivityFeedHandler {
	return &GetActivityFeedHandler{repo: repo}
}

// Handle executes the query. Entries are newest first.
func (h *GetActivityFeedHandler) Handle(ctx context.Context, q GetActivityFeedQuery) ([]progress.ActivityLogEntry, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultFeedLimit
	}
	if q.Limit > MaxFeedLimit {
		q.Limit = MaxFeedLimit
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_activity_feed: %w", err)
	}

	entries, err := h.repo.RecentActivity(ctx, userID.String(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_activity_feed: %w", err)
	}
	if entries == nil {
		entries = []progress.ActivityLogEntry{}
	}
	return entries, nil
}
