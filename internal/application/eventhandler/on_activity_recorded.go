// Package eventhandler contains domain event handlers.
// Handlers are the reactive part of the system: they keep read-side
// projections such as the Redis leaderboard in step with recorded activity.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACTIVITY RECORDED HANDLER
// Pushes the new experience total into the rank index and drops cached
// leaderboard pages so the next read rebuilds them from the store.
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardProjection is the read-side leaderboard state kept outside the store.
type LeaderboardProjection interface {
	SetExperience(ctx context.Context, userID string, xp int) error
	InvalidateTop(ctx context.Context) error
}

// ActivityRecordedConfig contains configuration for the handler.
type ActivityRecordedConfig struct {
	// Timeout bounds the projection update of one event.
	Timeout time.Duration
}

// DefaultActivityRecordedConfig returns default configuration.
func DefaultActivityRecordedConfig() ActivityRecordedConfig {
	return ActivityRecordedConfig{Timeout: 2 * time.Second}
}

// OnActivityRecordedHandler updates projections after each recorded activity.
type OnActivityRecordedHandler struct {
	projection LeaderboardProjection
	log        *logger.Logger
	config     ActivityRecordedConfig
}

// NewOnActivityRecordedHandler creates a new handler.
func NewOnActivityRecordedHandler(
	projection LeaderboardProjection,
	log *logger.Logger,
	config ActivityRecordedConfig,
) *OnActivityRecordedHandler {
	if log == nil {
		log = logger.Nop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultActivityRecordedConfig().Timeout
	}
	return &OnActivityRecordedHandler{
		projection: projection,
		log:        log.With(logger.Component("on_activity_recorded")),
		config:     config,
	}
}

// Register subscribes the handler to the events it consumes.
func (h *OnActivityRecordedHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventActivityRecorded, h.Handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", shared.EventActivityRecorded, err)
	}
	if err := bus.Subscribe(shared.EventAchievementUnlocked, h.HandleAchievement); err != nil {
		return fmt.Errorf("subscribe %s: %w", shared.EventAchievementUnlocked, err)
	}
	if err := bus.Subscribe(shared.EventLevelUp, h.HandleLevelUp); err != nil {
		return fmt.Errorf("subscribe %s: %w", shared.EventLevelUp, err)
	}
	return nil
}

// Handle processes an activity recorded event.
// Implements shared.EventHandler.
func (h *OnActivityRecordedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.ActivityRecordedEvent)
	if !ok {
		h.log.Warn("unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.projection.SetExperience(ctx, e.UserID, e.TotalExperience); err != nil {
		return fmt.Errorf("update rank index for %s: %w", e.UserID, err)
	}

	if err := h.projection.InvalidateTop(ctx); err != nil {
		return fmt.Errorf("invalidate leaderboard cache: %w", err)
	}

	h.log.Debug("leaderboard projection updated",
		logger.UserID(e.UserID),
		logger.XPAmount(e.TotalExperience),
	)
	return nil
}

// HandleAchievement logs unlocks for audit.
func (h *OnActivityRecordedHandler) HandleAchievement(event shared.Event) error {
	e, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		return nil
	}
	h.log.Info("achievement unlocked",
		logger.UserID(e.UserID),
		logger.AchievementID(e.AchievementID),
		logger.XPAmount(e.Points),
	)
	return nil
}

// HandleLevelUp logs level changes.
func (h *OnActivityRecordedHandler) HandleLevelUp(event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		return nil
	}
	h.log.Info("level up",
		logger.UserID(e.UserID),
		logger.Int("old_level", e.OldLevel),
		logger.LevelValue(e.NewLevel),
	)
	return nil
}
