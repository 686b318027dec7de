package progress

import (
	"time"

	"github.com/resume-analyzer/progress-hub/pkg/timeutil"
)

// StreakState is the input and output of the streak calculator.
type StreakState struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}

// StreakUpdate describes the outcome of applying one activity to a streak.
type StreakUpdate struct {
	StreakState

	// DaysSince - calendar days since the previous activity (0 for the first one).
	DaysSince int

	// NewDay is true when the activity starts a new calendar day after a
	// previous activity. The very first activity is not a new day: the default
	// record already counts it.
	NewDay bool

	// Broken is true when a streak longer than one day was reset.
	Broken bool

	// PreviousStreak is the streak value before the update.
	PreviousStreak int
}

// NextStreak applies an activity at `now` to prev.
// Calendar days are taken in loc; a nil loc means UTC.
//
//	no previous activity -> current 1
//	same day             -> unchanged
//	next day             -> current+1
//	gap of 2+ days       -> current 1
//
// A previous activity in the future (clock skew) counts as the same day.
func NextStreak(prev StreakState, now time.Time, loc *time.Location) StreakUpdate {
	upd := StreakUpdate{StreakState: prev, PreviousStreak: prev.Current}

	at := now
	upd.LastActivity = &at

	if prev.LastActivity == nil {
		upd.Current = 1
		upd.Longest = max(prev.Longest, 1)
		return upd
	}

	days := timeutil.DaysBetween(*prev.LastActivity, now, loc)
	if days < 0 {
		days = 0
	}
	upd.DaysSince = days

	switch {
	case days == 0:
		// Same day - nothing changes.
	case days == 1:
		upd.Current = prev.Current + 1
		upd.NewDay = true
	default:
		upd.Current = 1
		upd.NewDay = true
		upd.Broken = prev.Current > 1
	}

	if upd.Current < 1 {
		upd.Current = 1
	}
	upd.Longest = max(upd.Longest, upd.Current)
	return upd
}

// ApplyStreak copies a streak update into the record.
func (p *UserProgress) ApplyStreak(upd StreakUpdate) {
	p.CurrentStreak = upd.Current
	p.LongestStreak = upd.Longest
	p.LastActivity = upd.LastActivity
	if upd.NewDay {
		p.DaysActive++
	}
}
