package progress

import (
	"context"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the durable progress store.
// Implementations live in infrastructure/persistence (PostgreSQL, SQLite).
// All failures are returned wrapped with shared.ErrStorage.
type Repository interface {
	// ──────────────────────────────────────────────────────────────────────────
	// USER PROGRESS
	// ──────────────────────────────────────────────────────────────────────────

	// Get returns the stored record or a default one that is not yet persisted.
	// A default record has an unknown (zero) SignupOrder.
	Get(ctx context.Context, userID string) (*UserProgress, error)

	// Save upserts the full record. Last writer wins.
	// An already assigned SignupOrder is kept.
	Save(ctx context.Context, p *UserProgress) error

	// Count returns the number of stored users.
	Count(ctx context.Context) (int64, error)

	// ──────────────────────────────────────────────────────────────────────────
	// APPEND-ONLY LOGS
	// ──────────────────────────────────────────────────────────────────────────

	// AppendActivity inserts an activity log entry.
	AppendActivity(ctx context.Context, entry ActivityLogEntry) error

	// AppendUnlock inserts an achievement unlock entry.
	AppendUnlock(ctx context.Context, unlock AchievementUnlock) error

	// Unlocks returns the user's unlock entries, oldest first.
	Unlocks(ctx context.Context, userID string) ([]AchievementUnlock, error)

	// RecentActivity returns the latest activity entries, newest first.
	RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityLogEntry, error)

	// ──────────────────────────────────────────────────────────────────────────
	// RANKING
	// ──────────────────────────────────────────────────────────────────────────

	// Leaderboard returns users sorted by the category keys.
	// limit <= 0 returns every user.
	Leaderboard(ctx context.Context, category LeaderboardCategory, limit int) ([]LeaderboardEntry, error)
}

// ActivityCommitter is implemented by stores that can persist the outcome of
// one activity atomically: the progress upsert, the activity log entry and
// any unlock entries succeed or fail together.
type ActivityCommitter interface {
	CommitActivity(ctx context.Context, p *UserProgress, entry ActivityLogEntry, unlocks []AchievementUnlock) error
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD TYPES
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCategory selects the ordering of a leaderboard.
type LeaderboardCategory string

const (
	CategoryExperience LeaderboardCategory = "experience"
	CategoryLevel      LeaderboardCategory = "level"
	CategoryResumes    LeaderboardCategory = "resumes"
	CategoryInterviews LeaderboardCategory = "interviews"
	CategoryStreak     LeaderboardCategory = "streak"
)

// Categories lists every supported category.
var Categories = []LeaderboardCategory{
	CategoryExperience,
	CategoryLevel,
	CategoryResumes,
	CategoryInterviews,
	CategoryStreak,
}

// ParseCategory maps a raw value to a category. Unknown or empty values
// fall back to CategoryExperience.
func ParseCategory(raw string) LeaderboardCategory {
	c := LeaderboardCategory(strings.ToLower(strings.TrimSpace(raw)))
	if c.IsValid() {
		return c
	}
	return CategoryExperience
}

// IsValid reports whether c is a known category.
func (c LeaderboardCategory) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the underlying string value.
func (c LeaderboardCategory) String() string {
	return string(c)
}

// LeaderboardEntry is one row of a leaderboard.
type LeaderboardEntry struct {
	Rank                     int    `json:"rank"`
	UserID                   string `json:"user_id"`
	Level                    int    `json:"level"`
	ExperiencePoints         int    `json:"experience_points"`
	TotalResumesAnalyzed     int    `json:"total_resumes_analyzed"`
	TotalInterviewsCompleted int    `json:"total_interviews_completed"`
	CurrentStreak            int    `json:"current_streak"`
	LongestStreak            int    `json:"longest_streak"`
}

// EntryFrom projects a progress record onto a leaderboard row without a rank.
func EntryFrom(p *UserProgress) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:                   p.UserID,
		Level:                    p.Level,
		ExperiencePoints:         p.ExperiencePoints,
		TotalResumesAnalyzed:     p.TotalResumesAnalyzed,
		TotalInterviewsCompleted: p.TotalInterviewsCompleted,
		CurrentStreak:            p.CurrentStreak,
		LongestStreak:            p.LongestStreak,
	}
}

// Less reports whether a ranks strictly before b in category c.
// The final tie-breaker is user_id ascending.
func (c LeaderboardCategory) Less(a, b LeaderboardEntry) bool {
	keys := c.sortKeys(a, b)
	for _, k := range keys {
		if k[0] != k[1] {
			return k[0] > k[1]
		}
	}
	return a.UserID < b.UserID
}

func (c LeaderboardCategory) sortKeys(a, b LeaderboardEntry) [][2]int {
	switch c {
	case CategoryLevel:
		return [][2]int{{a.Level, b.Level}, {a.ExperiencePoints, b.ExperiencePoints}}
	case CategoryResumes:
		return [][2]int{{a.TotalResumesAnalyzed, b.TotalResumesAnalyzed}}
	case CategoryInterviews:
		return [][2]int{{a.TotalInterviewsCompleted, b.TotalInterviewsCompleted}}
	case CategoryStreak:
		return [][2]int{{a.CurrentStreak, b.CurrentStreak}, {a.LongestStreak, b.LongestStreak}}
	default:
		return [][2]int{{a.ExperiencePoints, b.ExperiencePoints}}
	}
}

// AssignRanks numbers entries 1..n in their current order.
func AssignRanks(entries []LeaderboardEntry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
