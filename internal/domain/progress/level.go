package progress

// LevelThresholds holds the minimum XP of each level; index 0 is level 1.
var LevelThresholds = [...]int{
	0, 100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500,
	10000, 13000, 16500, 20500, 25000, 30000, 35500, 41500, 48000, 55000,
	62500,
}

// MaxLevel is the highest reachable level.
const MaxLevel = len(LevelThresholds)

// LevelUpBonus is granted once per activity that raises the level.
const LevelUpBonus = 50

// LevelFor returns the number of thresholds not above xp.
// 0..99 XP is level 1, 100..249 is level 2, and so on up to MaxLevel.
func LevelFor(xp int) int {
	level := 0
	for _, threshold := range LevelThresholds {
		if xp < threshold {
			break
		}
		level++
	}
	if level < 1 {
		return 1
	}
	return level
}

// XPForNextLevel returns how much XP is missing until the next level.
// Returns 0 at MaxLevel.
func XPForNextLevel(xp int) int {
	level := LevelFor(xp)
	if level >= MaxLevel {
		return 0
	}
	return LevelThresholds[level] - xp
}

// LevelProgress returns the completed fraction of the current level in [0, 1].
func LevelProgress(xp int) float64 {
	level := LevelFor(xp)
	if level >= MaxLevel {
		return 1
	}
	floor := LevelThresholds[level-1]
	ceil := LevelThresholds[level]
	if xp <= floor {
		return 0
	}
	return float64(xp-floor) / float64(ceil-floor)
}

// LevelInfo bundles the derived level figures used by progress views.
type LevelInfo struct {
	Level          int     `json:"level"`
	XPForNextLevel int     `json:"xp_for_next_level"`
	Progress       float64 `json:"progress"`
	IsMaxLevel     bool    `json:"is_max_level"`
}

// DescribeLevel computes LevelInfo for xp.
func DescribeLevel(xp int) LevelInfo {
	level := LevelFor(xp)
	return LevelInfo{
		Level:          level,
		XPForNextLevel: XPForNextLevel(xp),
		Progress:       LevelProgress(xp),
		IsMaxLevel:     level >= MaxLevel,
	}
}
