// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/domain/achievement"
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Applies one user activity: streak, counters, points, achievements, level.
// This is the only write path for user progress.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains the data to record an activity.
type RecordActivityCommand struct {
	// UserID is the caller-owned identifier of the user.
	UserID string

	// ActivityType is one of the known progress.ActivityType values.
	// Unknown types are accepted and earn no points.
	ActivityType string

	// Details is the optional activity payload (scores, counts, signup order).
	Details map[string]interface{}

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return err
	}
	if progress.ParseActivityType(c.ActivityType).IsBlank() {
		return shared.ErrEmptyActivityType
	}
	return nil
}

// ActivityResult contains the result of recording an activity.
type ActivityResult struct {
	UserID       string `json:"user_id"`
	ActivityType string `json:"activity_type"`

	// PointsEarned = base points + achievement points + level-up bonus.
	PointsEarned int `json:"points_earned"`

	LevelUp bool `json:"level_up"`

	// NewLevel is nil unless LevelUp is true.
	NewLevel *int `json:"new_level"`

	// NewAchievements lists ids unlocked by this activity, in catalog order.
	NewAchievements []string `json:"new_achievements"`

	TotalExperience int       `json:"total_experience"`
	CurrentLevel    int       `json:"current_level"`
	CurrentStreak   int       `json:"current_streak"`
	RecordedAt      time.Time `json:"recorded_at"`

	// Events contains domain events generated.
	Events []shared.Event `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	repo           progress.Repository
	evaluator      *achievement.Evaluator
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	// Configuration
	now   func() time.Time
	loc   *time.Location
	locks *userLocks
}

// RecordActivityHandlerConfig contains configuration for the handler.
type RecordActivityHandlerConfig struct {
	// Location defines calendar days for streaks. Defaults to UTC.
	Location *time.Location

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger defaults to a no-op logger.
	Logger *logger.Logger
}

// DefaultRecordActivityHandlerConfig returns default configuration.
func DefaultRecordActivityHandlerConfig() RecordActivityHandlerConfig {
	return RecordActivityHandlerConfig{
		Location: time.UTC,
		Clock:    time.Now,
		Logger:   logger.Nop(),
	}
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
// eventPublisher may be nil.
func NewRecordActivityHandler(
	repo progress.Repository,
	evaluator *achievement.Evaluator,
	eventPublisher shared.EventPublisher,
	config RecordActivityHandlerConfig,
) *RecordActivityHandler {
	def := DefaultRecordActivityHandlerConfig()
	if config.Location == nil {
		config.Location = def.Location
	}
	if config.Clock == nil {
		config.Clock = def.Clock
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}

	return &RecordActivityHandler{
		repo:           repo,
		evaluator:      evaluator,
		eventPublisher: eventPublisher,
		log:            config.Logger.With(logger.Component("record_activity")),
		now:            config.Clock,
		loc:            config.Location,
		locks:          newUserLocks(),
	}
}

// Handle executes the record activity command.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*ActivityResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_activity: %w", err)
	}
	userID, _ := shared.NewUserID(cmd.UserID)
	activityType := progress.ParseActivityType(cmd.ActivityType)

	// One writer per user inside this process
	unlock, err := h.locks.Lock(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("record_activity: acquire user lock: %w", err)
	}
	defer unlock()

	p, err := h.repo.Get(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("record_activity: load progress: %w", err)
	}

	now := h.now()
	p.RecalculateLevel()
	startLevel := p.Level
	startXP := p.ExperiencePoints

	details, dropped := progress.CleanDetails(cmd.Details)
	if len(dropped) > 0 {
		h.log.Warn("dropped unencodable activity details",
			logger.UserID(p.UserID),
			logger.ActivityType(activityType.String()),
			logger.Any("keys", dropped),
		)
	}
	cmd.Details = details

	p.AdoptSignupOrder(cmd.Details)

	// Streak and daily counters
	streak := progress.NextStreak(p.Streak(), now, h.loc)
	p.ApplyStreak(streak)

	// Activity counters and base points
	p.ApplyCounters(activityType, cmd.Details)
	total := activityType.BasePoints()
	p.AddExperience(total)

	// Achievements
	newlyUnlocked := h.evaluator.Evaluate(p, cmd.Details)
	unlocks := make([]progress.AchievementUnlock, 0, len(newlyUnlocked))
	newIDs := make([]string, 0, len(newlyUnlocked))
	for _, def := range newlyUnlocked {
		if !p.AddAchievement(def.ID) {
			continue
		}
		p.AddExperience(def.Points)
		total += def.Points
		newIDs = append(newIDs, def.ID)
		unlocks = append(unlocks, progress.AchievementUnlock{
			UserID:        p.UserID,
			AchievementID: def.ID,
			UnlockedAt:    now,
		})
	}

	// Level-up bonus, once per activity
	p.RecalculateLevel()
	levelUp := p.Level > startLevel
	if levelUp {
		p.AddExperience(progress.LevelUpBonus)
		total += progress.LevelUpBonus
	}
	p.UpdatedAt = now

	entry := progress.ActivityLogEntry{
		UserID:       p.UserID,
		ActivityType: activityType.String(),
		PointsEarned: total,
		Details:      cmd.Details,
		Timestamp:    now,
	}
	if err := h.persist(ctx, p, entry, unlocks); err != nil {
		h.log.Error("failed to persist activity",
			logger.UserID(p.UserID),
			logger.ActivityType(activityType.String()),
			logger.Err(err),
		)
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	result := &ActivityResult{
		UserID:          p.UserID,
		ActivityType:    activityType.String(),
		PointsEarned:    total,
		LevelUp:         levelUp,
		NewAchievements: newIDs,
		TotalExperience: p.ExperiencePoints,
		CurrentLevel:    p.Level,
		CurrentStreak:   p.CurrentStreak,
		RecordedAt:      now,
	}
	if levelUp {
		lvl := p.Level
		result.NewLevel = &lvl
	}

	result.Events = h.buildEvents(cmd, p, result, newlyUnlocked, streak, startLevel)
	h.publish(result.Events)

	h.log.Info("activity recorded",
		logger.UserID(p.UserID),
		logger.ActivityType(activityType.String()),
		logger.XPAmount(total),
		logger.Int("experience_before", startXP),
		logger.Int("experience_after", p.ExperiencePoints),
		logger.LevelValue(p.Level),
		logger.Int("achievements_unlocked", len(newIDs)),
	)

	return result, nil
}

// persist writes progress, the activity entry and unlock entries.
// Atomic when the store supports it.
func (h *RecordActivityHandler) persist(
	ctx context.Context,
	p *progress.UserProgress,
	entry progress.ActivityLogEntry,
	unlocks []progress.AchievementUnlock,
) error {
	if committer, ok := h.repo.(progress.ActivityCommitter); ok {
		if err := committer.CommitActivity(ctx, p, entry, unlocks); err != nil {
			return fmt.Errorf("commit activity: %w", err)
		}
		return nil
	}

	if err := h.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	for _, u := range unlocks {
		if err := h.repo.AppendUnlock(ctx, u); err != nil {
			return fmt.Errorf("append unlock %s: %w", u.AchievementID, err)
		}
	}
	if err := h.repo.AppendActivity(ctx, entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// buildEvents creates the domain events for a recorded activity.
func (h *RecordActivityHandler) buildEvents(
	cmd RecordActivityCommand,
	p *progress.UserProgress,
	result *ActivityResult,
	unlocked []achievement.Definition,
	streak progress.StreakUpdate,
	startLevel int,
) []shared.Event {
	at := result.RecordedAt
	events := make([]shared.Event, 0, 2+len(unlocked))

	recorded := shared.NewActivityRecordedEvent(p.UserID, result.ActivityType, result.PointsEarned,
		result.TotalExperience, result.CurrentStreak, at)
	recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	events = append(events, recorded)

	for _, def := range unlocked {
		if !containsID(result.NewAchievements, def.ID) {
			continue
		}
		e := shared.NewAchievementUnlockedEvent(p.UserID, def.ID, def.Name, def.Points, at)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, e)
	}

	if result.LevelUp {
		e := shared.NewLevelUpEvent(p.UserID, startLevel, p.Level, p.ExperiencePoints, at)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, e)
	}

	if streak.Broken {
		e := shared.NewStreakBrokenEvent(p.UserID, streak.PreviousStreak, streak.DaysSince-1, at)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, e)
	}

	return events
}

// publish sends events best-effort. Failures are logged, never returned.
func (h *RecordActivityHandler) publish(events []shared.Event) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(event.EventType())),
				logger.UserID(event.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
