package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-analyzer/progress-hub/internal/application/command"
	"github.com/resume-analyzer/progress-hub/internal/application/query"
	"github.com/resume-analyzer/progress-hub/internal/domain/achievement"
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/internal/interface/http/handlers"
	"github.com/resume-analyzer/progress-hub/internal/testutil"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ──── helpers ────────────────────────────────────────────────────────────────

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta struct {
		RequestID string    `json:"request_id"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"meta"`
}

// brokenRepo fails every read with a storage error.
type brokenRepo struct {
	progress.Repository
}

func (brokenRepo) Get(context.Context, string) (*progress.UserProgress, error) {
	return nil, shared.StorageError("progress", "Get", errors.New("disk I/O error"))
}

func (brokenRepo) Leaderboard(context.Context, progress.LeaderboardCategory, int) ([]progress.LeaderboardEntry, error) {
	return nil, shared.StorageError("progress", "Leaderboard", errors.New("disk I/O error"))
}

func newTestServer(t *testing.T, repo progress.Repository, cfg Config) *Server {
	t.Helper()
	catalog := achievement.MustDefaultCatalog()
	evaluator := achievement.NewEvaluator(catalog)
	clock := testutil.NewClock(testutil.Date(2026, time.March, 2, 10))

	cfg.GinMode = gin.TestMode
	return NewServer(cfg, Dependencies{
		RecordActivity: command.NewRecordActivityHandler(repo, evaluator, nil, command.RecordActivityHandlerConfig{
			Clock: clock.Now,
		}),
		GetUserProgress:        query.NewGetUserProgressHandler(repo),
		GetUserAchievements:    query.NewGetUserAchievementsHandler(repo, catalog),
		GetAchievementProgress: query.NewGetAchievementProgressHandler(repo, evaluator),
		GetActivityFeed:        query.NewGetActivityFeedHandler(repo),
		GetUserRank:            query.NewGetUserRankHandler(repo, nil, nil),
		GetLeaderboard:         query.NewGetLeaderboardHandler(repo, nil, nil),
		ListAchievements:       query.NewListAchievementsHandler(catalog),
		Logger:                 logger.Nop(),
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitPerSec = 0
	return cfg
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// ──── tests ──────────────────────────────────────────────────────────────────

func TestRecordActivity_ThenRead(t *testing.T) {
	s := newTestServer(t, testutil.OpenTestStore(t), testConfig())

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/alice/activities", RecordActivityRequest{
		ActivityType: "resume_analyzed",
		Details:      map[string]interface{}{"score": 72},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Meta.RequestID)
	assert.Equal(t, env.Meta.RequestID, rec.Header().Get(handlers.RequestIDHeader))

	var result command.ActivityResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 75, result.PointsEarned)
	assert.Equal(t, []string{"first_analysis"}, result.NewAchievements)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/alice/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		ExperiencePoints   int      `json:"experience_points"`
		AchievementsEarned []string `json:"achievements_earned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 75, view.ExperiencePoints)
	assert.Equal(t, []string{"first_analysis"}, view.AchievementsEarned)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/alice/achievements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var earned []achievement.EarnedAchievement
	require.NoError(t, json.Unmarshal(env.Data, &earned))
	require.Len(t, earned, 1)
	assert.Equal(t, "first_analysis", earned[0].ID)
	assert.False(t, earned[0].UnlockedAt.IsZero())

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/alice/activities?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []progress.ActivityLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, 75, feed[0].PointsEarned)

	rec, env = do(t, s, http.MethodGet, "/api/v1/leaderboard?category=experience", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board query.GetLeaderboardResult
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "alice", board.Entries[0].UserID)
	assert.Equal(t, query.DefaultLeaderboardLimit, board.Limit)
}

func TestUnknownUser_GetsDefaults(t *testing.T) {
	s := newTestServer(t, testutil.OpenTestStore(t), testConfig())

	rec, env := do(t, s, http.MethodGet, "/api/v1/users/nobody/rank", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rank query.UserRankDTO
	require.NoError(t, json.Unmarshal(env.Data, &rank))
	assert.False(t, rank.Ranked)
	assert.Equal(t, 1, rank.Level)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/nobody/achievements/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []achievement.Progress
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, achievement.MustDefaultCatalog().Len())
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, testutil.OpenTestStore(t), testConfig())

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/alice/activities", map[string]any{"details": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, handlers.CodeInvalidInput, env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/activities", bytes.NewBufferString("not json"))
	raw := httptest.NewRecorder()
	s.Handler().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/leaderboard?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.CodeInvalidInput, env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, handlers.CodeNotFound, env.Error.Code)

	broken := newTestServer(t, brokenRepo{}, testConfig())
	rec, env = do(t, broken, http.MethodGet, "/api/v1/users/alice/progress", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, handlers.CodeStorageUnavailable, env.Error.Code)

	rec, _ = do(t, broken, http.MethodGet, "/api/v1/leaderboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListAchievements(t *testing.T) {
	s := newTestServer(t, testutil.OpenTestStore(t), testConfig())

	rec, env := do(t, s, http.MethodGet, "/api/v1/achievements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var defs []achievement.Definition
	require.NoError(t, json.Unmarshal(env.Data, &defs))
	assert.Equal(t, "first_analysis", defs[0].ID)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, testutil.OpenTestStore(t), testConfig())
	checker := handlers.NewCompositeHealthChecker("test")
	s.deps.HealthChecker = checker

	rec, env := do(t, s, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	checker.AddOptionalCheck("redis", func(context.Context) error { return errors.New("down") })
	rec, _ = do(t, s, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	checker.AddCheck("store", func(context.Context) error { return errors.New("down") })
	rec, env = do(t, s, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSec = 0.001
	cfg.RateLimitBurst = 2
	s := newTestServer(t, testutil.OpenTestStore(t), cfg)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, s, http.MethodGet, "/api/v1/achievements", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, s, http.MethodGet, "/api/v1/achievements", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, handlers.CodeRateLimited, env.Error.Code)

	rec, _ = do(t, s, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
