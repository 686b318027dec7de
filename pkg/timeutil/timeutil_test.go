package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	base := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)

	assert.Equal(t, 0, DaysBetween(base, base.Add(10*time.Minute), loc))
	assert.Equal(t, 1, DaysBetween(base, base.Add(40*time.Minute), loc))
	assert.Equal(t, 2, DaysBetween(base, base.AddDate(0, 0, 2), loc))
	assert.Equal(t, -1, DaysBetween(base, base.AddDate(0, 0, -1), loc))
}

func TestDaysBetween_UsesLocalCalendar(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)

	// 20:00 UTC is already the next day in UTC+5.
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(first, second, time.UTC))
	assert.Equal(t, 1, DaysBetween(first, second, almaty))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	ny, err := LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	before := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	after := time.Date(2024, 3, 11, 0, 30, 0, 0, ny)
	assert.Equal(t, 2, DaysBetween(before, after, ny))
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2024, 7, 4, 15, 45, 12, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), StartOfDay(ts, time.UTC))
	assert.Equal(t, time.Date(2024, 7, 4, 23, 59, 59, 999999999, time.UTC), EndOfDay(ts, time.UTC))
	assert.Equal(t, StartOfDay(ts, time.UTC), StartOfDay(ts, nil))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}

func TestFormatAndParseDate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02", FormatDate(ts, time.UTC))

	parsed, err := ParseDate("2024-01-02", time.UTC)
	require.NoError(t, err)
	assert.True(t, IsSameDay(parsed, ts, time.UTC))
	assert.True(t, IsConsecutiveDay(parsed, parsed.AddDate(0, 0, 1), time.UTC))
}
