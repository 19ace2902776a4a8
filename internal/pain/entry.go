package pain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MinLevel is the lowest pain level a user can record.
	MinLevel = 0
	// MaxLevel is the highest pain level a user can record.
	MaxLevel = 10
	// HighPainThreshold is the level from which a day counts as a high pain day.
	HighPainThreshold = 7

	maxIdentifierLength = 190
)

var (
	// ErrInvalidLevel indicates that a pain level is outside [MinLevel, MaxLevel].
	ErrInvalidLevel = errors.New("pain: invalid level")
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("pain: invalid user id")
)

// UserID represents a validated user identifier issued by the auth provider.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// ValidateLevel reports ErrInvalidLevel for levels outside the scale.
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return nil
}

// Entry is the snapshot of one logged day consumed by the stats and calendar engines.
type Entry struct {
	Day      Day        `json:"date"`
	Level    int        `json:"level"`
	LoggedAt *time.Time `json:"logged_at,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// IsPainFree reports whether the entry records no pain.
func (e Entry) IsPainFree() bool {
	return e.Level == 0
}

// IsHighPain reports whether the entry records a high pain day.
func (e Entry) IsHighPain() bool {
	return e.Level >= HighPainThreshold
}

// LoggedSameDay reports whether the entry was recorded on the day it describes,
// as observed in loc. Entries without a logged instant count as same-day.
func (e Entry) LoggedSameDay(loc *time.Location) bool {
	if e.LoggedAt == nil {
		return true
	}
	return DayOf(*e.LoggedAt, loc) == e.Day
}

// SortByDay orders entries by ascending day, keeping the input order for equal days.
func SortByDay(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day.Before(sorted[j].Day)
	})
	return sorted
}

// LevelsByDay indexes entry levels by day. A later entry for the same day wins.
func LevelsByDay(entries []Entry) map[Day]int {
	levels := make(map[Day]int, len(entries))
	for _, entry := range entries {
		levels[entry.Day] = entry.Level
	}
	return levels
}
