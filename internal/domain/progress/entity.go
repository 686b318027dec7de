package progress

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the single mutable record kept per user.
// It is created lazily on first activity and never deleted.
type UserProgress struct {
	// UserID - opaque identifier supplied by the calling application.
	UserID string `json:"user_id"`

	// Level is always derived from ExperiencePoints via LevelFor.
	Level int `json:"level"`

	// ExperiencePoints never decreases.
	ExperiencePoints int `json:"experience_points"`

	TotalResumesAnalyzed     int `json:"total_resumes_analyzed"`
	TotalInterviewsCompleted int `json:"total_interviews_completed"`
	SkillsAdded              int `json:"skills_added"`
	ConnectionsMade          int `json:"connections_made"`

	// DaysActive counts distinct calendar days with at least one activity.
	DaysActive int `json:"days_active"`

	// AchievementsEarned is ordered by unlock time and has no duplicates.
	AchievementsEarned []string `json:"achievements_earned"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	// LastActivity is nil until the first recorded activity.
	LastActivity *time.Time `json:"last_activity,omitempty"`

	// SignupOrder - 1-based registration position reported by the caller.
	// Zero means unknown.
	SignupOrder int64 `json:"signup_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProgress builds the default record for a user that has never been stored.
func NewUserProgress(userID string, signupOrder int64, now time.Time) *UserProgress {
	return &UserProgress{
		UserID:             userID,
		Level:              1,
		DaysActive:         1,
		AchievementsEarned: []string{},
		CurrentStreak:      1,
		LongestStreak:      1,
		SignupOrder:        signupOrder,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// HasAchievement reports whether the achievement is already earned.
func (p *UserProgress) HasAchievement(id string) bool {
	for _, earned := range p.AchievementsEarned {
		if earned == id {
			return true
		}
	}
	return false
}

// AddAchievement appends id unless it is already present.
// Returns false for duplicates.
func (p *UserProgress) AddAchievement(id string) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.AchievementsEarned = append(p.AchievementsEarned, id)
	return true
}

// AddExperience adds non-negative points and re-derives the level.
func (p *UserProgress) AddExperience(points int) {
	if points <= 0 {
		return
	}
	p.ExperiencePoints += points
	p.RecalculateLevel()
}

// RecalculateLevel derives Level from ExperiencePoints.
func (p *UserProgress) RecalculateLevel() {
	p.Level = LevelFor(p.ExperiencePoints)
}

// Streak returns the streak-relevant slice of the record.
func (p *UserProgress) Streak() StreakState {
	return StreakState{
		Current:      p.CurrentStreak,
		Longest:      p.LongestStreak,
		LastActivity: p.LastActivity,
	}
}

// Clone returns a deep copy safe to hand out to callers.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.AchievementsEarned = append([]string(nil), p.AchievementsEarned...)
	if c.AchievementsEarned == nil {
		c.AchievementsEarned = []string{}
	}
	if p.LastActivity != nil {
		t := *p.LastActivity
		c.LastActivity = &t
	}
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// APPEND-ONLY LOG ENTRIES
// ══════════════════════════════════════════════════════════════════════════════

// ActivityLogEntry records a single processed activity.
type ActivityLogEntry struct {
	ID           int64                  `json:"id"`
	UserID       string                 `json:"user_id"`
	ActivityType string                 `json:"activity_type"`
	PointsEarned int                    `json:"points_earned"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// AchievementUnlock records when a user earned an achievement.
// At most one exists per (user, achievement).
type AchievementUnlock struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
