// Package testutil provides helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/resume-analyzer/progress-hub/internal/infrastructure/persistence/sqlite"
)

// OpenTestStore opens a migrated in-memory SQLite store that is closed when
// the test ends.
func OpenTestStore(t *testing.T) *sqlite.ProgressRepository {
	t.Helper()

	db, err := sqlite.Open(sqlite.Config{Path: sqlite.MemoryPath, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return sqlite.NewProgressRepository(db.DB)
}

// Clock is a settable time source for tests.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current clock value.
func (c *Clock) Now() time.Time {
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Date returns a UTC time on the given day at the given hour.
func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
