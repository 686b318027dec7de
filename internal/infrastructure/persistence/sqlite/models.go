package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
)

// userProgressModel maps the user_progress table.
type userProgressModel struct {
	UserID                   string     `gorm:"column:user_id;primaryKey"`
	Level                    int        `gorm:"column:level;not null;default:1"`
	ExperiencePoints         int        `gorm:"column:experience_points;not null;default:0;index"`
	TotalResumesAnalyzed     int        `gorm:"column:total_resumes_analyzed;not null;default:0"`
	TotalInterviewsCompleted int        `gorm:"column:total_interviews_completed;not null;default:0"`
	SkillsAdded              int        `gorm:"column:skills_added;not null;default:0"`
	ConnectionsMade          int        `gorm:"column:connections_made;not null;default:0"`
	DaysActive               int        `gorm:"column:days_active;not null;default:0"`
	AchievementsEarned       string     `gorm:"column:achievements_earned;type:text;not null;default:'[]'"`
	CurrentStreak            int        `gorm:"column:current_streak;not null;default:0"`
	LongestStreak            int        `gorm:"column:longest_streak;not null;default:0"`
	LastActivity             *time.Time `gorm:"column:last_activity"`
	SignupOrder              int64      `gorm:"column:signup_order;not null;default:0"`
	CreatedAt                time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt                time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (userProgressModel) TableName() string { return "user_progress" }

// activityLogModel maps the append-only activity_log table.
type activityLogModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;not null;index:idx_activity_user_time,priority:1"`
	ActivityType string    `gorm:"column:activity_type;not null"`
	PointsEarned int       `gorm:"column:points_earned;not null;default:0"`
	Details      string    `gorm:"column:details;type:text"`
	Timestamp    time.Time `gorm:"column:timestamp;not null;index:idx_activity_user_time,priority:2"`
}

func (activityLogModel) TableName() string { return "activity_log" }

// achievementUnlockModel maps the append-only achievement_unlocks table.
type achievementUnlockModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        string    `gorm:"column:user_id;not null;uniqueIndex:idx_unlock_user_achievement,priority:1"`
	AchievementID string    `gorm:"column:achievement_id;not null;uniqueIndex:idx_unlock_user_achievement,priority:2"`
	UnlockedAt    time.Time `gorm:"column:unlocked_date;not null"`
}

func (achievementUnlockModel) TableName() string { return "achievement_unlocks" }

// ─── Mapping ────────────────────────────────────────────────────────────────

func toProgressModel(p *progress.UserProgress) (*userProgressModel, error) {
	earned := p.AchievementsEarned
	if earned == nil {
		earned = []string{}
	}
	data, err := json.Marshal(earned)
	if err != nil {
		return nil, fmt.Errorf("encode achievements: %w", err)
	}
	return &userProgressModel{
		UserID:                   p.UserID,
		Level:                    p.Level,
		ExperiencePoints:         p.ExperiencePoints,
		TotalResumesAnalyzed:     p.TotalResumesAnalyzed,
		TotalInterviewsCompleted: p.TotalInterviewsCompleted,
		SkillsAdded:              p.SkillsAdded,
		ConnectionsMade:          p.ConnectionsMade,
		DaysActive:               p.DaysActive,
		AchievementsEarned:       string(data),
		CurrentStreak:            p.CurrentStreak,
		LongestStreak:            p.LongestStreak,
		LastActivity:             p.LastActivity,
		SignupOrder:              p.SignupOrder,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}, nil
}

func (m *userProgressModel) toDomain() (*progress.UserProgress, error) {
	earned := []string{}
	if m.AchievementsEarned != "" {
		if err := json.Unmarshal([]byte(m.AchievementsEarned), &earned); err != nil {
			return nil, fmt.Errorf("decode achievements for %s: %w", m.UserID, err)
		}
	}
	return &progress.UserProgress{
		UserID:                   m.UserID,
		Level:                    m.Level,
		ExperiencePoints:         m.ExperiencePoints,
		TotalResumesAnalyzed:     m.TotalResumesAnalyzed,
		TotalInterviewsCompleted: m.TotalInterviewsCompleted,
		SkillsAdded:              m.SkillsAdded,
		ConnectionsMade:          m.ConnectionsMade,
		DaysActive:               m.DaysActive,
		AchievementsEarned:       earned,
		CurrentStreak:            m.CurrentStreak,
		LongestStreak:            m.LongestStreak,
		LastActivity:             m.LastActivity,
		SignupOrder:              m.SignupOrder,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}, nil
}

func toActivityModel(e progress.ActivityLogEntry) (*activityLogModel, error) {
	details := ""
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("encode details: %w", err)
		}
		details = string(data)
	}
	return &activityLogModel{
		ID:           e.ID,
		UserID:       e.UserID,
		ActivityType: e.ActivityType,
		PointsEarned: e.PointsEarned,
		Details:      details,
		Timestamp:    e.Timestamp,
	}, nil
}

func (m *activityLogModel) toDomain() progress.ActivityLogEntry {
	var details map[string]interface{}
	if m.Details != "" {
		// Details are informational; a broken payload is dropped rather than failing the feed.
		_ = json.Unmarshal([]byte(m.Details), &details)
	}
	return progress.ActivityLogEntry{
		ID:           m.ID,
		UserID:       m.UserID,
		ActivityType: m.ActivityType,
		PointsEarned: m.PointsEarned,
		Details:      details,
		Timestamp:    m.Timestamp,
	}
}

func (m *achievementUnlockModel) toDomain() progress.AchievementUnlock {
	return progress.AchievementUnlock{
		ID:            m.ID,
		UserID:        m.UserID,
		AchievementID: m.AchievementID,
		UnlockedAt:    m.UnlockedAt,
	}
}
