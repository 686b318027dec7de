package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-10, 1},
		{0, 1},
		{75, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{500, 4},
		{1000, 5},
		{10000, 11},
		{62499, 20},
		{62500, 21},
		{1_000_000, 21},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	prev := LevelFor(0)
	for xp := 1; xp <= 70000; xp += 7 {
		level := LevelFor(xp)
		assert.GreaterOrEqual(t, level, prev)
		assert.LessOrEqual(t, level, MaxLevel)
		prev = level
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPForNextLevel(0))
	assert.Equal(t, 25, XPForNextLevel(75))
	assert.Equal(t, 150, XPForNextLevel(100))
	assert.Equal(t, 0, XPForNextLevel(62500))
}

func TestLevelProgress(t *testing.T) {
	assert.InDelta(t, 0.0, LevelProgress(0), 1e-9)
	assert.InDelta(t, 0.75, LevelProgress(75), 1e-9)
	assert.InDelta(t, 0.5, LevelProgress(175), 1e-9)
	assert.InDelta(t, 1.0, LevelProgress(99999), 1e-9)

	info := DescribeLevel(62500)
	assert.True(t, info.IsMaxLevel)
	assert.Equal(t, MaxLevel, info.Level)
}

func TestUserProgress_AddExperience(t *testing.T) {
	p := NewUserProgress("u1", 1, day(1, 0))

	p.AddExperience(75)
	assert.Equal(t, 75, p.ExperiencePoints)
	assert.Equal(t, 1, p.Level)

	p.AddExperience(-20)
	assert.Equal(t, 75, p.ExperiencePoints)

	p.AddExperience(30)
	assert.Equal(t, 105, p.ExperiencePoints)
	assert.Equal(t, 2, p.Level)
}
