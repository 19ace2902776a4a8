// Package pain holds the value types shared by the pain log engines.
package pain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// ErrInvalidDay indicates that a calendar date could not be parsed.
var ErrInvalidDay = errors.New("pain: invalid day")

// Day is a calendar date without a time or zone component.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay normalizes the given components, so NewDay(2024, 2, 30) is 2024-03-01.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(rawInput string) (Day, error) {
	trimmed := strings.TrimSpace(rawInput)
	parsed, err := time.Parse(dayLayout, trimmed)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, rawInput)
	}
	return DayOf(parsed, time.UTC), nil
}

// MustParseDay is ParseDay for literals known to be valid.
func MustParseDay(rawInput string) Day {
	day, err := ParseDay(rawInput)
	if err != nil {
		panic(err)
	}
	return day
}

// DayOf returns the calendar day of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Day{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// AddDays returns the day n days after d (before it when n is negative).
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n), time.UTC)
}

// DaysSince returns the number of calendar days from other to d.
func (d Day) DaysSince(other Day) int {
	return int(d.Time().Sub(other.Time()).Hours() / 24)
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool {
	return d.Time().After(other.Time())
}

// Weekday returns the day of the week, Sunday being 0.
func (d Day) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

// MarshalText encodes the day as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD string.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
