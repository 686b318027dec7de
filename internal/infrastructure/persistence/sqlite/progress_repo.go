package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

const storageDomain = "progress_store"

// progressColumns are overwritten on upsert. signup_order and created_at are
// handled separately so an existing record keeps them.
var progressColumns = []string{
	"level",
	"experience_points",
	"total_resumes_analyzed",
	"total_interviews_completed",
	"skills_added",
	"connections_made",
	"days_active",
	"achievements_earned",
	"current_streak",
	"longest_streak",
	"last_activity",
	"updated_at",
}

// leaderboardOrder is the ORDER BY clause per category.
var leaderboardOrder = map[progress.LeaderboardCategory]string{
	progress.CategoryExperience: "experience_points DESC, user_id ASC",
	progress.CategoryLevel:      "level DESC, experience_points DESC, user_id ASC",
	progress.CategoryResumes:    "total_resumes_analyzed DESC, user_id ASC",
	progress.CategoryInterviews: "total_interviews_completed DESC, user_id ASC",
	progress.CategoryStreak:     "current_streak DESC, longest_streak DESC, user_id ASC",
}

// ProgressRepository implements progress.Repository and
// progress.ActivityCommitter with gorm.
type ProgressRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProgressRepository creates a repository on an open gorm handle.
func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db, now: time.Now}
}

// WithClock sets the clock used for default records.
func (r *ProgressRepository) WithClock(now func() time.Time) *ProgressRepository {
	r.now = now
	return r
}

// Compile-time checks.
var (
	_ progress.Repository        = (*ProgressRepository)(nil)
	_ progress.ActivityCommitter = (*ProgressRepository)(nil)
)

// ─── User progress ──────────────────────────────────────────────────────────

// Get returns the stored record or an unsaved default one.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*progress.UserProgress, error) {
	var m userProgressModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return progress.NewUserProgress(userID, 0, r.now()), nil
	}
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Get", err)
	}
	p, err := m.toDomain()
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Get", err)
	}
	return p, nil
}

// Save upserts the full record.
func (r *ProgressRepository) Save(ctx context.Context, p *progress.UserProgress) error {
	if err := upsertProgress(r.db.WithContext(ctx), p); err != nil {
		return shared.StorageError(storageDomain, "Save", err)
	}
	return nil
}

func upsertProgress(tx *gorm.DB, p *progress.UserProgress) error {
	m, err := toProgressModel(p)
	if err != nil {
		return err
	}

	set := clause.AssignmentColumns(progressColumns)
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "signup_order"},
		Value: gorm.Expr(
			"CASE WHEN user_progress.signup_order > 0 THEN user_progress.signup_order ELSE excluded.signup_order END",
		),
	})

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: set,
	}).Create(m).Error
}

// Count returns the number of stored users.
func (r *ProgressRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&userProgressModel{}).Count(&n).Error; err != nil {
		return 0, shared.StorageError(storageDomain, "Count", err)
	}
	return n, nil
}

// ─── Append-only logs ───────────────────────────────────────────────────────

// AppendActivity inserts an activity log entry.
func (r *ProgressRepository) AppendActivity(ctx context.Context, entry progress.ActivityLogEntry) error {
	if err := insertActivity(r.db.WithContext(ctx), entry); err != nil {
		return shared.StorageError(storageDomain, "AppendActivity", err)
	}
	return nil
}

func insertActivity(tx *gorm.DB, entry progress.ActivityLogEntry) error {
	m, err := toActivityModel(entry)
	if err != nil {
		return err
	}
	m.ID = 0
	return tx.Create(m).Error
}

// AppendUnlock inserts an unlock entry. A repeated (user, achievement) pair
// is ignored.
func (r *ProgressRepository) AppendUnlock(ctx context.Context, unlock progress.AchievementUnlock) error {
	if err := insertUnlock(r.db.WithContext(ctx), unlock); err != nil {
		return shared.StorageError(storageDomain, "AppendUnlock", err)
	}
	return nil
}

func insertUnlock(tx *gorm.DB, u progress.AchievementUnlock) error {
	m := &achievementUnlockModel{
		UserID:        u.UserID,
		AchievementID: u.AchievementID,
		UnlockedAt:    u.UnlockedAt,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

// Unlocks returns unlock entries for a user, oldest first.
func (r *ProgressRepository) Unlocks(ctx context.Context, userID string) ([]progress.AchievementUnlock, error) {
	var models []achievementUnlockModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_date ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Unlocks", err)
	}

	out := make([]progress.AchievementUnlock, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

// RecentActivity returns up to limit entries, newest first.
func (r *ProgressRepository) RecentActivity(ctx context.Context, userID string, limit int) ([]progress.ActivityLogEntry, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []activityLogModel
	if err := q.Find(&models).Error; err != nil {
		return nil, shared.StorageError(storageDomain, "RecentActivity", err)
	}

	out := make([]progress.ActivityLogEntry, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

// ─── Ranking ────────────────────────────────────────────────────────────────

// Leaderboard returns ranked rows for the category.
func (r *ProgressRepository) Leaderboard(ctx context.Context, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error) {
	order, ok := leaderboardOrder[category]
	if !ok {
		order = leaderboardOrder[progress.CategoryExperience]
	}

	q := r.db.WithContext(ctx).Model(&userProgressModel{}).Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []userProgressModel
	if err := q.Find(&models).Error; err != nil {
		return nil, shared.StorageError(storageDomain, "Leaderboard", err)
	}

	entries := make([]progress.LeaderboardEntry, 0, len(models))
	for i := range models {
		m := &models[i]
		entries = append(entries, progress.LeaderboardEntry{
			UserID:                   m.UserID,
			Level:                    m.Level,
			ExperiencePoints:         m.ExperiencePoints,
			TotalResumesAnalyzed:     m.TotalResumesAnalyzed,
			TotalInterviewsCompleted: m.TotalInterviewsCompleted,
			CurrentStreak:            m.CurrentStreak,
			LongestStreak:            m.LongestStreak,
		})
	}
	progress.AssignRanks(entries)
	return entries, nil
}

// ─── Atomic commit ──────────────────────────────────────────────────────────

// CommitActivity persists one activity outcome in a single transaction.
func (r *ProgressRepository) CommitActivity(
	ctx context.Context,
	p *progress.UserProgress,
	entry progress.ActivityLogEntry,
	unlocks []progress.AchievementUnlock,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertProgress(tx, p); err != nil {
			return err
		}
		for _, u := range unlocks {
			if err := insertUnlock(tx, u); err != nil {
				return err
			}
		}
		return insertActivity(tx, entry)
	})
	if err != nil {
		return shared.StorageError(storageDomain, "CommitActivity", err)
	}
	return nil
}
