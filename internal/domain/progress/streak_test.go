package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNextStreak_FirstActivity(t *testing.T) {
	upd := NextStreak(StreakState{Current: 1, Longest: 1}, day(1, 9), time.UTC)

	assert.Equal(t, 1, upd.Current)
	assert.Equal(t, 1, upd.Longest)
	assert.False(t, upd.NewDay)
	assert.False(t, upd.Broken)
	assert.Equal(t, day(1, 9), *upd.LastActivity)
}

func TestNextStreak_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		prev        StreakState
		now         time.Time
		wantCurrent int
		wantLongest int
		wantNewDay  bool
		wantBroken  bool
	}{
		{
			name:        "same day keeps streak",
			prev:        StreakState{Current: 3, Longest: 5, LastActivity: ptr(day(10, 8))},
			now:         day(10, 22),
			wantCurrent: 3,
			wantLongest: 5,
		},
		{
			name:        "next day extends streak",
			prev:        StreakState{Current: 3, Longest: 3, LastActivity: ptr(day(10, 23))},
			now:         day(11, 1),
			wantCurrent: 4,
			wantLongest: 4,
			wantNewDay:  true,
		},
		{
			name:        "next day below longest keeps longest",
			prev:        StreakState{Current: 2, Longest: 9, LastActivity: ptr(day(10, 12))},
			now:         day(11, 12),
			wantCurrent: 3,
			wantLongest: 9,
			wantNewDay:  true,
		},
		{
			name:        "gap resets streak",
			prev:        StreakState{Current: 5, Longest: 5, LastActivity: ptr(day(10, 12))},
			now:         day(12, 12),
			wantCurrent: 1,
			wantLongest: 5,
			wantNewDay:  true,
			wantBroken:  true,
		},
		{
			name:        "future last activity treated as same day",
			prev:        StreakState{Current: 4, Longest: 6, LastActivity: ptr(day(15, 12))},
			now:         day(14, 12),
			wantCurrent: 4,
			wantLongest: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd := NextStreak(tt.prev, tt.now, time.UTC)

			assert.Equal(t, tt.wantCurrent, upd.Current)
			assert.Equal(t, tt.wantLongest, upd.Longest)
			assert.Equal(t, tt.wantNewDay, upd.NewDay)
			assert.Equal(t, tt.wantBroken, upd.Broken)
			assert.GreaterOrEqual(t, upd.Longest, upd.Current)
			assert.Equal(t, tt.now, *upd.LastActivity)
		})
	}
}

func TestNextStreak_UsesCalendarDaysNotHours(t *testing.T) {
	// 23:59 -> 00:01 is a new day even though only two minutes passed.
	prev := StreakState{Current: 1, Longest: 1, LastActivity: ptr(time.Date(2024, 2, 1, 23, 59, 0, 0, time.UTC))}
	upd := NextStreak(prev, time.Date(2024, 2, 2, 0, 1, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 2, upd.Current)

	// 00:01 -> 23:59 next day is still one day.
	prev = StreakState{Current: 1, Longest: 1, LastActivity: ptr(time.Date(2024, 2, 1, 0, 1, 0, 0, time.UTC))}
	upd = NextStreak(prev, time.Date(2024, 2, 2, 23, 59, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 2, upd.Current)
}

func TestNextStreak_LongestNeverBelowCurrent(t *testing.T) {
	state := StreakState{Current: 1, Longest: 1}
	now := day(1, 12)
	gaps := []int{1, 1, 0, 3, 1, 1, 1, 2, 1}

	for _, gap := range gaps {
		now = now.AddDate(0, 0, gap)
		upd := NextStreak(state, now, time.UTC)
		assert.GreaterOrEqual(t, upd.Longest, upd.Current)
		assert.GreaterOrEqual(t, upd.Longest, state.Longest)
		state = upd.StreakState
	}
	assert.Equal(t, 4, state.Longest)
}

func TestApplyStreak_CountsDaysActive(t *testing.T) {
	p := NewUserProgress("alice", 1, day(1, 8))

	p.ApplyStreak(NextStreak(p.Streak(), day(1, 9), time.UTC))
	assert.Equal(t, 1, p.DaysActive)

	p.ApplyStreak(NextStreak(p.Streak(), day(1, 18), time.UTC))
	assert.Equal(t, 1, p.DaysActive)

	p.ApplyStreak(NextStreak(p.Streak(), day(2, 9), time.UTC))
	assert.Equal(t, 2, p.DaysActive)
	assert.Equal(t, 2, p.CurrentStreak)

	p.ApplyStreak(NextStreak(p.Streak(), day(5, 9), time.UTC))
	assert.Equal(t, 3, p.DaysActive)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
}
