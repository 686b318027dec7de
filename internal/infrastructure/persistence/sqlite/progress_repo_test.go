package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/internal/testutil"
)

func seed(t *testing.T, repo progress.Repository, userID string, xp, resumes, streak int) {
	t.Helper()
	p := progress.NewUserProgress(userID, 0, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	p.ExperiencePoints = xp
	p.RecalculateLevel()
	p.TotalResumesAnalyzed = resumes
	p.CurrentStreak = streak
	p.LongestStreak = streak
	require.NoError(t, repo.Save(context.Background(), p))
}

func TestProgressRepository_GetDefault(t *testing.T) {
	repo := testutil.OpenTestStore(t)

	p, err := repo.Get(context.Background(), "ghost")
	require.NoError(t, err)

	assert.Equal(t, "ghost", p.UserID)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.ExperiencePoints)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, int64(0), p.SignupOrder)
	assert.Empty(t, p.AchievementsEarned)
	assert.Nil(t, p.LastActivity)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "Get must not persist the default record")
}

func TestProgressRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := testutil.OpenTestStore(t)

	last := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := progress.NewUserProgress("alice", 7, last)
	p.ExperiencePoints = 150
	p.RecalculateLevel()
	p.TotalResumesAnalyzed = 2
	p.SkillsAdded = 5
	p.AchievementsEarned = []string{"first_analysis", "trendsetter"}
	p.LastActivity = &last
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 150, got.ExperiencePoints)
	assert.Equal(t, 2, got.TotalResumesAnalyzed)
	assert.Equal(t, 5, got.SkillsAdded)
	assert.Equal(t, []string{"first_analysis", "trendsetter"}, got.AchievementsEarned)
	assert.Equal(t, int64(7), got.SignupOrder)
	require.NotNil(t, got.LastActivity)
	assert.True(t, got.LastActivity.Equal(last))
}

func TestProgressRepository_SaveKeepsSignupOrder(t *testing.T) {
	ctx := context.Background()
	repo := testutil.OpenTestStore(t)

	first := progress.NewUserProgress("bob", 3, time.Now())
	require.NoError(t, repo.Save(ctx, first))

	// A later writer without a known signup order must not erase it.
	second := progress.NewUserProgress("bob", 0, time.Now())
	second.ExperiencePoints = 25
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.SignupOrder)
	assert.Equal(t, 25, got.ExperiencePoints)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestProgressRepository_Leaderboard(t *testing.T) {
	ctx := context.Background()
	repo := testutil.OpenTestStore(t)

	seed(t, repo, "carol", 300, 1, 2)
	seed(t, repo, "alice", 300, 5, 1)
	seed(t, repo, "bob", 900, 3, 7)

	tests := []struct {
		name     string
		category progress.LeaderboardCategory
		limit    int
		want     []string
	}{
		{"experience with user id tie-break", progress.CategoryExperience, 0, []string{"bob", "alice", "carol"}},
		{"resumes", progress.CategoryResumes, 0, []string{"alice", "bob", "carol"}},
		{"streak", progress.CategoryStreak, 0, []string{"bob", "carol", "alice"}},
		{"level", progress.CategoryLevel, 0, []string{"bob", "alice", "carol"}},
		{"limit", progress.CategoryExperience, 2, []string{"bob", "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := repo.Leaderboard(ctx, tt.category, tt.limit)
			require.NoError(t, err)

			ids := make([]string, 0, len(entries))
			for i, e := range entries {
				assert.Equal(t, i+1, e.Rank)
				ids = append(ids, e.UserID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProgressRepository_Logs(t *testing.T) {
	ctx := context.Background()
	repo := testutil.OpenTestStore(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, kind := range []string{"resume_analyzed", "skill_added", "interview_completed"} {
		require.NoError(t, repo.AppendActivity(ctx, progress.ActivityLogEntry{
			UserID:       "alice",
			ActivityType: kind,
			PointsEarned: 10 * (i + 1),
			Details:      map[string]interface{}{"count": i + 1},
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	feed, err := repo.RecentActivity(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "interview_completed", feed[0].ActivityType)
	assert.Equal(t, "skill_added", feed[1].ActivityType)
	assert.Equal(t, float64(2), feed[1].Details["count"])

	require.NoError(t, repo.AppendUnlock(ctx, progress.AchievementUnlock{
		UserID: "alice", AchievementID: "first_analysis", UnlockedAt: base,
	}))
	require.NoError(t, repo.AppendUnlock(ctx, progress.AchievementUnlock{
		UserID: "alice", AchievementID: "analysis_streak", UnlockedAt: base.Add(time.Hour),
	}))
	// Duplicate pair is ignored.
	require.NoError(t, repo.AppendUnlock(ctx, progress.AchievementUnlock{
		UserID: "alice", AchievementID: "first_analysis", UnlockedAt: base.Add(2 * time.Hour),
	}))

	unlocks, err := repo.Unlocks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, unlocks, 2)
	assert.Equal(t, "first_analysis", unlocks[0].AchievementID)
	assert.True(t, unlocks[0].UnlockedAt.Equal(base))
	assert.Equal(t, "analysis_streak", unlocks[1].AchievementID)
}

func TestProgressRepository_CommitActivity(t *testing.T) {
	ctx := context.Background()
	repo := testutil.OpenTestStore(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	p := progress.NewUserProgress("dana", 0, now)
	p.ExperiencePoints = 125
	p.AchievementsEarned = []string{"first_analysis"}
	entry := progress.ActivityLogEntry{UserID: "dana", ActivityType: "resume_analyzed", PointsEarned: 125, Timestamp: now}
	unlocks := []progress.AchievementUnlock{{UserID: "dana", AchievementID: "first_analysis", UnlockedAt: now}}

	require.NoError(t, repo.CommitActivity(ctx, p, entry, unlocks))

	got, err := repo.Get(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, 125, got.ExperiencePoints)

	feed, err := repo.RecentActivity(ctx, "dana", 0)
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	ul, err := repo.Unlocks(ctx, "dana")
	require.NoError(t, err)
	assert.Len(t, ul, 1)
}

func TestProgressRepository_CanceledContext(t *testing.T) {
	repo := testutil.OpenTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, "alice")
	require.Error(t, err)
	assert.True(t, shared.IsStorage(err))
}
