package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

func activityEvent(userID string) shared.ActivityRecordedEvent {
	return shared.NewActivityRecordedEvent(userID, "resume_analyzed", 75, 75, 1, time.Now())
}

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventActivityRecorded, func(e shared.Event) error {
		got = append(got, "typed:"+e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+string(e.EventType()))
		return nil
	}))

	require.NoError(t, bus.Publish(activityEvent("alice")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("alice", 1, 2, 150, time.Now())))

	assert.Equal(t, []string{
		"typed:alice",
		"all:" + string(shared.EventActivityRecorded),
		"all:" + string(shared.EventLevelUp),
	}, got)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().TotalPublished)
}

func TestInMemoryEventBus_HandlerErrorsAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventActivityRecorded, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventActivityRecorded, func(shared.Event) error {
		panic("handler bug")
	}))

	assert.NoError(t, bus.Publish(activityEvent("bob")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerExecutions)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled int32
	require.NoError(t, bus.Subscribe(shared.EventActivityRecorded, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&handled, 1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(activityEvent("carol")))
	}
	require.NoError(t, bus.Close())

	assert.LessOrEqual(t, atomic.LoadInt32(&handled), int32(5))
	assert.ErrorIs(t, bus.Publish(activityEvent("carol")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_Validation(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

// ──── redis bus ──────────────────────────────────────────────────────────────

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	if b, ok := message.([]byte); ok {
		f.messages = append(f.messages, b)
	}
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	}
	return cmd
}

func TestRedisEventBus_MirrorsEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:         pub,
		LocalBusConfig: InMemoryEventBusConfig{AsyncMode: false},
	})
	require.NoError(t, err)
	defer bus.Close()

	var local int
	require.NoError(t, bus.Subscribe(shared.EventActivityRecorded, func(shared.Event) error {
		local++
		return nil
	}))

	e := activityEvent("dana")
	e.BaseEvent = e.BaseEvent.WithCorrelationID("req-1")
	require.NoError(t, bus.Publish(e))

	assert.Equal(t, 1, local)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, DefaultEventChannel, pub.channels[0])

	var env struct {
		Type          string                 `json:"type"`
		AggregateID   string                 `json:"aggregate_id"`
		CorrelationID string                 `json:"correlation_id"`
		InstanceID    string                 `json:"instance_id"`
		Payload       map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.messages[0], &env))
	assert.Equal(t, string(shared.EventActivityRecorded), env.Type)
	assert.Equal(t, "dana", env.AggregateID)
	assert.Equal(t, "req-1", env.CorrelationID)
	assert.NotEmpty(t, env.InstanceID)
	assert.Equal(t, float64(75), env.Payload["points_earned"])
}

func TestRedisEventBus_RedisFailureStillDeliversLocally(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:         pub,
		LocalBusConfig: InMemoryEventBusConfig{AsyncMode: false},
	})
	require.NoError(t, err)
	defer bus.Close()

	var local int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		local++
		return nil
	}))

	assert.NoError(t, bus.Publish(activityEvent("erin")))
	assert.Equal(t, 1, local)
}

func TestNewRedisEventBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}
