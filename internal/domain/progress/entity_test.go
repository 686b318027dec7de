package progress

import (
	"encoding/json"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserProgress_Defaults(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewUserProgress("bob", 7, now)

	assert.Equal(t, "bob", p.UserID)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.ExperiencePoints)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, 1, p.DaysActive)
	assert.Nil(t, p.LastActivity)
	assert.Empty(t, p.AchievementsEarned)
	assert.Equal(t, int64(7), p.SignupOrder)
}

func TestUserProgress_AddAchievementIsIdempotent(t *testing.T) {
	p := NewUserProgress("bob", 1, time.Now())

	assert.True(t, p.AddAchievement("first_analysis"))
	assert.False(t, p.AddAchievement("first_analysis"))
	assert.True(t, p.AddAchievement("daily_user"))

	assert.Equal(t, []string{"first_analysis", "daily_user"}, p.AchievementsEarned)
}

func TestUserProgress_CloneIsDeep(t *testing.T) {
	now := time.Now()
	p := NewUserProgress("bob", 1, now)
	p.AddAchievement("first_analysis")
	p.LastActivity = &now

	c := p.Clone()
	c.AchievementsEarned[0] = "changed"
	*c.LastActivity = now.Add(time.Hour)

	assert.Equal(t, "first_analysis", p.AchievementsEarned[0])
	assert.Equal(t, now, *p.LastActivity)
}

func TestApplyCounters(t *testing.T) {
	p := NewUserProgress("bob", 1, time.Now())

	p.ApplyCounters(ActivityResumeAnalyzed, nil)
	p.ApplyCounters(ActivityInterviewCompleted, nil)
	p.ApplyCounters(ActivitySkillAdded, map[string]interface{}{"count": 3})
	p.ApplyCounters(ActivitySkillAdded, map[string]interface{}{"count": -2})
	p.ApplyCounters(ActivitySkillAdded, map[string]interface{}{"count": "oops"})
	p.ApplyCounters(ActivityConnectionMade, nil)
	p.ApplyCounters(ActivityType("unknown"), nil)

	assert.Equal(t, 1, p.TotalResumesAnalyzed)
	assert.Equal(t, 1, p.TotalInterviewsCompleted)
	assert.Equal(t, 5, p.SkillsAdded)
	assert.Equal(t, 1, p.ConnectionsMade)
}

func TestBasePoints(t *testing.T) {
	assert.Equal(t, 25, ActivityResumeAnalyzed.BasePoints())
	assert.Equal(t, 50, ActivityInterviewCompleted.BasePoints())
	assert.Equal(t, 10, ActivitySkillAdded.BasePoints())
	assert.Equal(t, 5, ActivityDailyLogin.BasePoints())
	assert.Equal(t, 15, ActivityConnectionMade.BasePoints())
	assert.Equal(t, 0, ActivityType("made_up").BasePoints())
	assert.False(t, ActivityType("made_up").IsKnown())
	assert.Equal(t, ActivityType("Resume_Analyzed"), ParseActivityType("Resume_Analyzed"))
	assert.Equal(t, 0, ParseActivityType("Resume_Analyzed").BasePoints())
	assert.True(t, ParseActivityType(" \t").IsBlank())
}

func TestNumberDetail(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 0.95, "b": "0.5", "c": true, "d": [1], "e": null}`), &decoded))

	assert.InDelta(t, 0.95, NumberDetail(decoded, "a"), 1e-9)
	assert.InDelta(t, 0.5, NumberDetail(decoded, "b"), 1e-9)
	assert.InDelta(t, 1.0, NumberDetail(decoded, "c"), 1e-9)
	assert.Zero(t, NumberDetail(decoded, "d"))
	assert.Zero(t, NumberDetail(decoded, "e"))
	assert.Zero(t, NumberDetail(decoded, "missing"))
	assert.Zero(t, NumberDetail(nil, "a"))

	assert.True(t, BoolDetail(map[string]interface{}{"f": true}, "f"))
	assert.True(t, BoolDetail(map[string]interface{}{"f": "true"}, "f"))
	assert.False(t, BoolDetail(map[string]interface{}{"f": "yes please"}, "f"))
	assert.False(t, BoolDetail(map[string]interface{}{"f": 0}, "f"))
}

func TestLeaderboardCategory_Less(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "carol", ExperiencePoints: 300, Level: 3, CurrentStreak: 2, LongestStreak: 9},
		{UserID: "alice", ExperiencePoints: 300, Level: 3, CurrentStreak: 2, LongestStreak: 4},
		{UserID: "bob", ExperiencePoints: 900, Level: 4, CurrentStreak: 1, LongestStreak: 1},
	}

	byXP := append([]LeaderboardEntry(nil), entries...)
	sort.SliceStable(byXP, func(i, j int) bool { return CategoryExperience.Less(byXP[i], byXP[j]) })
	assert.Equal(t, []string{"bob", "alice", "carol"}, userIDs(byXP))

	byStreak := append([]LeaderboardEntry(nil), entries...)
	sort.SliceStable(byStreak, func(i, j int) bool { return CategoryStreak.Less(byStreak[i], byStreak[j]) })
	assert.Equal(t, []string{"carol", "alice", "bob"}, userIDs(byStreak))
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryStreak, ParseCategory("STREAK"))
	assert.Equal(t, CategoryExperience, ParseCategory(""))
	assert.Equal(t, CategoryExperience, ParseCategory("karma"))
}

func userIDs(entries []LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	return ids
}

func TestAdoptSignupOrder(t *testing.T) {
	p := NewUserProgress("bob", 0, time.Now())

	assert.False(t, p.AdoptSignupOrder(nil))
	assert.False(t, p.AdoptSignupOrder(map[string]interface{}{"signup_order": 2.5}))
	assert.False(t, p.AdoptSignupOrder(map[string]interface{}{"signup_order": -4}))
	assert.True(t, p.AdoptSignupOrder(map[string]interface{}{"signup_order": 42}))
	assert.Equal(t, int64(42), p.SignupOrder)

	assert.False(t, p.AdoptSignupOrder(map[string]interface{}{"signup_order": 7}))
	assert.Equal(t, int64(42), p.SignupOrder)
}

func TestCleanDetails(t *testing.T) {
	in := map[string]interface{}{
		"count":  3,
		"score":  math.Inf(-1),
		"nested": []interface{}{1.0, math.NaN()},
		"hook":   func() {},
	}

	out, dropped := CleanDetails(in)
	assert.Equal(t, map[string]interface{}{"count": 3}, out)
	assert.Equal(t, []string{"hook", "nested", "score"}, dropped)
	assert.Len(t, in, 4)

	out, dropped = CleanDetails(nil)
	assert.Nil(t, out)
	assert.Empty(t, dropped)
}
