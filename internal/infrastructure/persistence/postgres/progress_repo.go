package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

const storageDomain = "progress_store"

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository and
// progress.ActivityCommitter for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
	now  func() time.Time
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn, now: time.Now}
}

var (
	_ progress.Repository        = (*ProgressRepository)(nil)
	_ progress.ActivityCommitter = (*ProgressRepository)(nil)
)

const progressColumns = `user_id, level, experience_points, total_resumes_analyzed,
	total_interviews_completed, skills_added, connections_made, days_active,
	achievements_earned, current_streak, longest_streak, last_activity,
	signup_order, created_at, updated_at`

// leaderboardOrder is the ORDER BY clause per category.
var leaderboardOrder = map[progress.LeaderboardCategory]string{
	progress.CategoryExperience: "experience_points DESC, user_id ASC",
	progress.CategoryLevel:      "level DESC, experience_points DESC, user_id ASC",
	progress.CategoryResumes:    "total_resumes_analyzed DESC, user_id ASC",
	progress.CategoryInterviews: "total_interviews_completed DESC, user_id ASC",
	progress.CategoryStreak:     "current_streak DESC, longest_streak DESC, user_id ASC",
}

// ─────────────────────────────────────────────────────────────────────────────
// User progress
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the stored record or an unsaved default one.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*progress.UserProgress, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Get", err)
	}

	row := q.QueryRow(ctx, "SELECT "+progressColumns+" FROM user_progress WHERE user_id = $1", userID)
	p, err := scanProgress(row)
	if IsNoRows(err) {
		return progress.NewUserProgress(userID, 0, r.now()), nil
	}
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Get", err)
	}
	return p, nil
}

// Save upserts the full record.
func (r *ProgressRepository) Save(ctx context.Context, p *progress.UserProgress) error {
	q, err := r.conn.querier()
	if err == nil {
		err = upsertProgress(ctx, q, p)
	}
	if err != nil {
		return shared.StorageError(storageDomain, "Save", err)
	}
	return nil
}

// upsertProgress overwrites every column except created_at. A positive
// signup_order already on the row is kept.
func upsertProgress(ctx context.Context, q Querier, p *progress.UserProgress) error {
	earned := p.AchievementsEarned
	if earned == nil {
		earned = []string{}
	}
	earnedJSON, err := json.Marshal(earned)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			experience_points = EXCLUDED.experience_points,
			total_resumes_analyzed = EXCLUDED.total_resumes_analyzed,
			total_interviews_completed = EXCLUDED.total_interviews_completed,
			skills_added = EXCLUDED.skills_added,
			connections_made = EXCLUDED.connections_made,
			days_active = EXCLUDED.days_active,
			achievements_earned = EXCLUDED.achievements_earned,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity = EXCLUDED.last_activity,
			signup_order = CASE WHEN user_progress.signup_order > 0
				THEN user_progress.signup_order ELSE EXCLUDED.signup_order END,
			updated_at = EXCLUDED.updated_at
	`,
		p.UserID,
		p.Level,
		p.ExperiencePoints,
		p.TotalResumesAnalyzed,
		p.TotalInterviewsCompleted,
		p.SkillsAdded,
		p.ConnectionsMade,
		p.DaysActive,
		string(earnedJSON),
		p.CurrentStreak,
		p.LongestStreak,
		p.LastActivity,
		p.SignupOrder,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// Count returns the number of stored users.
func (r *ProgressRepository) Count(ctx context.Context) (int64, error) {
	q, err := r.conn.querier()
	if err != nil {
		return 0, shared.StorageError(storageDomain, "Count", err)
	}
	var n int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM user_progress").Scan(&n); err != nil {
		return 0, shared.StorageError(storageDomain, "Count", err)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Append-only logs
// ─────────────────────────────────────────────────────────────────────────────

// AppendActivity inserts an activity log entry.
func (r *ProgressRepository) AppendActivity(ctx context.Context, entry progress.ActivityLogEntry) error {
	q, err := r.conn.querier()
	if err == nil {
		err = insertActivity(ctx, q, entry)
	}
	if err != nil {
		return shared.StorageError(storageDomain, "AppendActivity", err)
	}
	return nil
}

func insertActivity(ctx context.Context, q Querier, e progress.ActivityLogEntry) error {
	var details *string
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		s := string(data)
		details = &s
	}
	_, err := q.Exec(ctx, `
		INSERT INTO activity_log (user_id, activity_type, points_earned, details, timestamp)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`, e.UserID, e.ActivityType, e.PointsEarned, details, e.Timestamp)
	return err
}

// AppendUnlock inserts an unlock entry. A repeated (user, achievement) pair
// is ignored.
func (r *ProgressRepository) AppendUnlock(ctx context.Context, unlock progress.AchievementUnlock) error {
	q, err := r.conn.querier()
	if err == nil {
		err = insertUnlock(ctx, q, unlock)
	}
	if err != nil {
		return shared.StorageError(storageDomain, "AppendUnlock", err)
	}
	return nil
}

func insertUnlock(ctx context.Context, q Querier, u progress.AchievementUnlock) error {
	_, err := q.Exec(ctx, `
		INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, u.UserID, u.AchievementID, u.UnlockedAt)
	return err
}

// Unlocks returns unlock entries for a user, oldest first.
func (r *ProgressRepository) Unlocks(ctx context.Context, userID string) ([]progress.AchievementUnlock, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Unlocks", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, user_id, achievement_id, unlocked_date
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_date ASC, id ASC
	`, userID)
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Unlocks", err)
	}
	defer rows.Close()

	out := []progress.AchievementUnlock{}
	for rows.Next() {
		var u progress.AchievementUnlock
		if err := rows.Scan(&u.ID, &u.UserID, &u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, shared.StorageError(storageDomain, "Unlocks", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError(storageDomain, "Unlocks", err)
	}
	return out, nil
}

// RecentActivity returns up to limit entries, newest first. limit <= 0
// returns everything.
func (r *ProgressRepository) RecentActivity(ctx context.Context, userID string, limit int) ([]progress.ActivityLogEntry, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, shared.StorageError(storageDomain, "RecentActivity", err)
	}

	sql := `
		SELECT id, user_id, activity_type, points_earned, details, timestamp
		FROM activity_log
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		sql += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.StorageError(storageDomain, "RecentActivity", err)
	}
	defer rows.Close()

	out := []progress.ActivityLogEntry{}
	for rows.Next() {
		var (
			e       progress.ActivityLogEntry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ActivityType, &e.PointsEarned, &details, &e.Timestamp); err != nil {
			return nil, shared.StorageError(storageDomain, "RecentActivity", err)
		}
		if len(details) > 0 {
			// Details are informational; a broken payload is dropped.
			_ = json.Unmarshal(details, &e.Details)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError(storageDomain, "RecentActivity", err)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranking
// ─────────────────────────────────────────────────────────────────────────────

// Leaderboard returns ranked rows for the category.
func (r *ProgressRepository) Leaderboard(ctx context.Context, category progress.LeaderboardCategory, limit int) ([]progress.LeaderboardEntry, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Leaderboard", err)
	}

	order, ok := leaderboardOrder[category]
	if !ok {
		order = leaderboardOrder[progress.CategoryExperience]
	}
	sql := `
		SELECT user_id, level, experience_points, total_resumes_analyzed,
			total_interviews_completed, current_streak, longest_streak
		FROM user_progress
		ORDER BY ` + order
	var args []interface{}
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.StorageError(storageDomain, "Leaderboard", err)
	}
	defer rows.Close()

	entries := []progress.LeaderboardEntry{}
	for rows.Next() {
		var e progress.LeaderboardEntry
		if err := rows.Scan(
			&e.UserID,
			&e.Level,
			&e.ExperiencePoints,
			&e.TotalResumesAnalyzed,
			&e.TotalInterviewsCompleted,
			&e.CurrentStreak,
			&e.LongestStreak,
		); err != nil {
			return nil, shared.StorageError(storageDomain, "Leaderboard", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError(storageDomain, "Leaderboard", err)
	}

	progress.AssignRanks(entries)
	return entries, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Atomic commit
// ─────────────────────────────────────────────────────────────────────────────

// CommitActivity persists one activity outcome in a single transaction.
func (r *ProgressRepository) CommitActivity(
	ctx context.Context,
	p *progress.UserProgress,
	entry progress.ActivityLogEntry,
	unlocks []progress.AchievementUnlock,
) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := upsertProgress(ctx, tx, p); err != nil {
			return err
		}
		for _, u := range unlocks {
			if err := insertUnlock(ctx, tx, u); err != nil {
				return err
			}
		}
		return insertActivity(ctx, tx, entry)
	})
	if err != nil {
		return shared.StorageError(storageDomain, "CommitActivity", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanProgress(row pgx.Row) (*progress.UserProgress, error) {
	var (
		p      progress.UserProgress
		earned []byte
	)
	err := row.Scan(
		&p.UserID,
		&p.Level,
		&p.ExperiencePoints,
		&p.TotalResumesAnalyzed,
		&p.TotalInterviewsCompleted,
		&p.SkillsAdded,
		&p.ConnectionsMade,
		&p.DaysActive,
		&earned,
		&p.CurrentStreak,
		&p.LongestStreak,
		&p.LastActivity,
		&p.SignupOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.AchievementsEarned = []string{}
	if len(earned) > 0 {
		if err := json.Unmarshal(earned, &p.AchievementsEarned); err != nil {
			return nil, fmt.Errorf("decode achievements for %s: %w", p.UserID, err)
		}
	}
	return &p, nil
}
