package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
	"github.com/resume-analyzer/progress-hub/internal/infrastructure/messaging"
)

type fakeProjection struct {
	xp          map[string]int
	invalidated int
	setErr      error
}

func (f *fakeProjection) SetExperience(_ context.Context, userID string, xp int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.xp[userID] = xp
	return nil
}

func (f *fakeProjection) InvalidateTop(context.Context) error {
	f.invalidated++
	return nil
}

func newProjection() *fakeProjection {
	return &fakeProjection{xp: map[string]int{}}
}

func TestOnActivityRecorded_ThroughBus(t *testing.T) {
	proj := newProjection()
	h := NewOnActivityRecordedHandler(proj, nil, DefaultActivityRecordedConfig())

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()
	require.NoError(t, h.Register(bus))

	now := time.Now()
	require.NoError(t, bus.Publish(shared.NewActivityRecordedEvent("alice", "resume_analyzed", 75, 75, 1, now)))
	require.NoError(t, bus.Publish(shared.NewActivityRecordedEvent("bob", "daily_login", 5, 5, 1, now)))
	require.NoError(t, bus.Publish(shared.NewActivityRecordedEvent("alice", "bogus", 0, 75, 2, now)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("alice", 1, 2, 150, now)))
	require.NoError(t, bus.Publish(shared.NewAchievementUnlockedEvent("alice", "first_analysis", "First Steps", 50, now)))

	assert.Equal(t, map[string]int{"alice": 75, "bob": 5}, proj.xp)
	// Zero-point activities still move streak rankings.
	assert.Equal(t, 3, proj.invalidated)
	assert.Zero(t, bus.Metrics().Snapshot().HandlerFailures)
}

func TestOnActivityRecorded_ProjectionFailure(t *testing.T) {
	proj := newProjection()
	proj.setErr = errors.New("redis down")
	h := NewOnActivityRecordedHandler(proj, nil, ActivityRecordedConfig{})

	err := h.Handle(shared.NewActivityRecordedEvent("alice", "resume_analyzed", 75, 75, 1, time.Now()))
	assert.ErrorContains(t, err, "alice")
	assert.Zero(t, proj.invalidated)
}

func TestOnActivityRecorded_IgnoresOtherEvents(t *testing.T) {
	proj := newProjection()
	h := NewOnActivityRecordedHandler(proj, nil, DefaultActivityRecordedConfig())

	assert.NoError(t, h.Handle(shared.NewLevelUpEvent("alice", 1, 2, 150, time.Now())))
	assert.NoError(t, h.HandleAchievement(shared.NewLevelUpEvent("alice", 1, 2, 150, time.Now())))
	assert.NoError(t, h.HandleLevelUp(shared.NewStreakBrokenEvent("alice", 3, 2, time.Now())))
	assert.Empty(t, proj.xp)
}
