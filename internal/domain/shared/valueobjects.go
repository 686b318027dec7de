package shared

import (
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// MaxUserIDLength bounds identifiers handed over by collaborators.
const MaxUserIDLength = 128

// UserID is an opaque identifier owned by the calling application.
type UserID string

// IsValid checks that the id is non-empty and reasonably short.
func (u UserID) IsValid() bool {
	n := utf8.RuneCountInString(string(u))
	return n > 0 && n <= MaxUserIDLength
}

// String returns the underlying string value.
func (u UserID) String() string {
	return string(u)
}

// NewUserID validates a raw user id. Ids are opaque and kept verbatim;
// a blank id is rejected.
func NewUserID(raw string) (UserID, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyUserID
	}
	id := UserID(raw)
	if !id.IsValid() {
		return "", NewDomainError("progress", "Validate", ErrValueOutOfRange, "user id is too long")
	}
	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a user's position in the experience leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0 // Not yet ranked
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsUnranked checks if the user is not yet ranked.
func (r Rank) IsUnranked() bool {
	return r == Unranked
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// Medal returns a medal emoji for top ranks.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// NewRank creates a new Rank with validation.
func NewRank(position int) (Rank, error) {
	if position < 0 {
		return Unranked, NewDomainError("shared", "NewRank", ErrNegativeValue, "rank cannot be negative")
	}
	return Rank(position), nil
}
