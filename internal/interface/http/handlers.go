package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/resume-analyzer/progress-hub/internal/application/command"
	"github.com/resume-analyzer/progress-hub/internal/application/query"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/internal/interface/http/handlers"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, handlers.Envelope{
		Success: status.Healthy,
		Data:    status,
		Meta:    &handlers.ResponseMeta{RequestID: handlers.RequestIDFrom(c), Timestamp: status.Timestamp},
	})
}

func (s *Server) handleLive(c *gin.Context) {
	handlers.Respond(c, http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) handleReady(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Healthy {
		handlers.Fail(c, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	handlers.Respond(c, http.StatusOK, gin.H{"status": "ready", "degraded": status.Degraded})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITIES
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityRequest is the body of POST /users/:user_id/activities.
type RecordActivityRequest struct {
	ActivityType string                 `json:"activity_type"`
	Details      map[string]interface{} `json:"details"`
}

func (s *Server) handleRecordActivity(c *gin.Context) {
	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, handlers.CodeInvalidBody, "request body must be a JSON object")
		return
	}

	result, err := s.deps.RecordActivity.Handle(c.Request.Context(), command.RecordActivityCommand{
		UserID:        c.Param("user_id"),
		ActivityType:  req.ActivityType,
		Details:       req.Details,
		CorrelationID: handlers.RequestIDFrom(c),
	})
	if err != nil {
		s.writeError(c, "record_activity", err)
		return
	}
	handlers.Respond(c, http.StatusCreated, result)
}

func (s *Server) handleGetActivityFeed(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := s.deps.GetActivityFeed.Handle(c.Request.Context(), query.GetActivityFeedQuery{
		UserID: c.Param("user_id"),
		Limit:  limit,
	})
	if err != nil {
		s.writeError(c, "get_activity_feed", err)
		return
	}
	handlers.Respond(c, http.StatusOK, entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetUserProgress(c *gin.Context) {
	view, err := s.deps.GetUserProgress.Handle(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.writeError(c, "get_user_progress", err)
		return
	}
	handlers.Respond(c, http.StatusOK, view)
}

func (s *Server) handleGetUserAchievements(c *gin.Context) {
	earned, err := s.deps.GetUserAchievements.Handle(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.writeError(c, "get_user_achievements", err)
		return
	}
	handlers.Respond(c, http.StatusOK, earned)
}

func (s *Server) handleGetAchievementProgress(c *gin.Context) {
	items, err := s.deps.GetAchievementProgress.Handle(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.writeError(c, "get_achievement_progress", err)
		return
	}
	handlers.Respond(c, http.StatusOK, items)
}

func (s *Server) handleGetUserRank(c *gin.Context) {
	rank, err := s.deps.GetUserRank.Handle(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.writeError(c, "get_user_rank", err)
		return
	}
	handlers.Respond(c, http.StatusOK, rank)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD & CATALOG
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLeaderboard(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	result, err := s.deps.GetLeaderboard.Handle(c.Request.Context(), query.GetLeaderboardQuery{
		Category: c.Query("category"),
		Limit:    limit,
	})
	if err != nil {
		s.writeError(c, "get_leaderboard", err)
		return
	}
	handlers.Respond(c, http.StatusOK, result)
}

func (s *Server) handleListAchievements(c *gin.Context) {
	handlers.Respond(c, http.StatusOK, s.deps.ListAchievements.Handle(c.Request.Context()))
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// queryLimit parses ?limit=. Missing means 0 (handler default).
// A non-integer limit is rejected with 400.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		handlers.Fail(c, http.StatusBadRequest, handlers.CodeInvalidInput, "limit must be an integer")
		return 0, false
	}
	return n, true
}

// writeError maps application errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	_ = c.Error(err)

	switch {
	case shared.IsValidation(err):
		handlers.Fail(c, http.StatusBadRequest, handlers.CodeInvalidInput, validationMessage(err))
	case shared.IsStorage(err):
		s.logFailure(c, op, err)
		handlers.Fail(c, http.StatusServiceUnavailable, handlers.CodeStorageUnavailable, "progress store is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		s.logFailure(c, op, err)
		handlers.Fail(c, http.StatusServiceUnavailable, handlers.CodeTimeout, "request timed out")
	case shared.IsNotFound(err):
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, err.Error())
	default:
		s.logFailure(c, op, err)
		handlers.Fail(c, http.StatusInternalServerError, handlers.CodeInternal, "An unexpected error occurred")
	}
}

func (s *Server) logFailure(c *gin.Context, op string, err error) {
	logger.FromContext(c.Request.Context()).Error("request failed",
		logger.Operation(op),
		logger.UserID(c.Param("user_id")),
		logger.Err(err),
	)
}

// validationMessage prefers the domain message over the wrapped chain.
func validationMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
