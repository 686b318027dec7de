package progress

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ActivityType identifies what the user did. The set is open: unknown
// types are accepted and earn no points.
type ActivityType string

const (
	ActivityResumeAnalyzed     ActivityType = "resume_analyzed"
	ActivityInterviewCompleted ActivityType = "interview_completed"
	ActivitySkillAdded         ActivityType = "skill_added"
	ActivityDailyLogin         ActivityType = "daily_login"
	ActivityStreakBonus        ActivityType = "streak_bonus"
	ActivityAchievementEarned  ActivityType = "achievement_earned"
	ActivityFeedbackGiven      ActivityType = "feedback_given"
	ActivityProfileUpdated     ActivityType = "profile_updated"
	ActivityConnectionMade     ActivityType = "connection_made"
)

// activityPoints is the base reward table.
var activityPoints = map[ActivityType]int{
	ActivityResumeAnalyzed:     25,
	ActivityInterviewCompleted: 50,
	ActivitySkillAdded:         10,
	ActivityDailyLogin:         5,
	ActivityStreakBonus:        10,
	ActivityAchievementEarned:  100,
	ActivityFeedbackGiven:      15,
	ActivityProfileUpdated:     20,
	ActivityConnectionMade:     15,
}

// ParseActivityType converts a raw activity type. Matching is exact:
// "Resume_Analyzed" is an unknown type and earns nothing.
func ParseActivityType(raw string) ActivityType {
	return ActivityType(raw)
}

// IsBlank reports whether the type is empty or only whitespace.
func (a ActivityType) IsBlank() bool {
	return strings.TrimSpace(string(a)) == ""
}

// String returns the underlying string value.
func (a ActivityType) String() string {
	return string(a)
}

// IsKnown reports whether the type has an entry in the points table.
func (a ActivityType) IsKnown() bool {
	_, ok := activityPoints[a]
	return ok
}

// BasePoints returns the reward for the activity type; 0 for unknown types.
func (a ActivityType) BasePoints() int {
	return activityPoints[a]
}

// ActivityPoints returns a copy of the reward table.
func ActivityPoints() map[ActivityType]int {
	out := make(map[ActivityType]int, len(activityPoints))
	for k, v := range activityPoints {
		out[k] = v
	}
	return out
}

// Details keys read by the progress model.
const (
	// DetailCount carries the number of added skills.
	DetailCount = "count"

	// DetailSignupOrder carries the user's explicit signup position.
	DetailSignupOrder = "signup_order"
)

// AdoptSignupOrder stores an explicit signup position from details when none
// is known yet. Returns true when the record changed.
func (p *UserProgress) AdoptSignupOrder(details map[string]interface{}) bool {
	if p.SignupOrder > 0 {
		return false
	}
	v := NumberDetail(details, DetailSignupOrder)
	if v < 1 || v != math.Trunc(v) || v > math.MaxInt32 {
		return false
	}
	p.SignupOrder = int64(v)
	return true
}

// CleanDetails returns a copy of details without the values the activity
// log cannot store as JSON, such as NaN or infinite numbers, plus the
// sorted keys it dropped. The input map is not modified.
func CleanDetails(details map[string]interface{}) (map[string]interface{}, []string) {
	if details == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(details))
	var dropped []string
	for k, v := range details {
		if _, err := json.Marshal(v); err != nil {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(dropped)
	return out, dropped
}

// ApplyCounters increments the counters driven by the activity type.
func (p *UserProgress) ApplyCounters(activity ActivityType, details map[string]interface{}) {
	switch activity {
	case ActivityResumeAnalyzed:
		p.TotalResumesAnalyzed++
	case ActivityInterviewCompleted:
		p.TotalInterviewsCompleted++
	case ActivitySkillAdded:
		n := int(NumberDetail(details, DetailCount))
		if n <= 0 {
			n = 1
		}
		p.SkillsAdded += n
	case ActivityConnectionMade:
		p.ConnectionsMade++
	}
}

// NumberDetail reads a numeric value from activity details.
// Missing or non-numeric values yield 0. Numeric strings and booleans are coerced.
func NumberDetail(details map[string]interface{}, key string) float64 {
	if details == nil {
		return 0
	}
	v, ok := details[key]
	if !ok || v == nil {
		return 0
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// BoolDetail reads a boolean flag from activity details.
// Missing, malformed or zero values are false.
func BoolDetail(details map[string]interface{}, key string) bool {
	if details == nil {
		return false
	}
	switch v := details[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return NumberDetail(details, key) != 0
	}
}
