// Package stats derives aggregate statistics, streaks and badges from a user's pain entries.
package stats

import (
	"sort"
	"time"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

const (
	monthWindowDays = 30
	weekWindowDays  = 7
)

// Stats summarizes a snapshot of pain entries relative to a reference day.
type Stats struct {
	AverageAll       *float64 `json:"average_all"`
	AverageLast30    *float64 `json:"average_last_30_days"`
	AverageLast7     *float64 `json:"average_last_7_days"`
	TotalEntries     int      `json:"total_entries"`
	PainFreeDayCount int      `json:"pain_free_day_count"`
	HighPainDayCount int      `json:"high_pain_day_count"`
	LongestStreak    int      `json:"longest_streak"`
	CurrentStreak    int      `json:"current_streak"`
}

type runningAverage struct {
	sum   int
	count int
}

func (r *runningAverage) add(level int) {
	r.sum += level
	r.count++
}

func (r runningAverage) value() *float64 {
	if r.count == 0 {
		return nil
	}
	average := float64(r.sum) / float64(r.count)
	return &average
}

// ComputeStats computes Stats for entries as seen on today. Calendar days of
// logged instants are observed in loc, which decides streak eligibility.
func ComputeStats(entries []pain.Entry, today pain.Day, loc *time.Location) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	var all, month, week runningAverage
	result := Stats{TotalEntries: len(entries)}
	eligible := make(map[pain.Day]struct{}, len(entries))

	for _, entry := range entries {
		all.add(entry.Level)

		age := today.DaysSince(entry.Day)
		if age >= 0 && age < monthWindowDays {
			month.add(entry.Level)
		}
		if age >= 0 && age < weekWindowDays {
			week.add(entry.Level)
		}

		if entry.IsPainFree() {
			result.PainFreeDayCount++
		}
		if entry.IsHighPain() {
			result.HighPainDayCount++
		}

		if entry.LoggedSameDay(loc) {
			eligible[entry.Day] = struct{}{}
		}
	}

	result.AverageAll = all.value()
	result.AverageLast30 = month.value()
	result.AverageLast7 = week.value()
	result.LongestStreak, result.CurrentStreak = streaks(eligible)
	return result
}

// streaks walks the eligible days in ascending order. The current streak is the
// run ending at the most recent eligible day.
func streaks(eligible map[pain.Day]struct{}) (longest int, current int) {
	if len(eligible) == 0 {
		return 0, 0
	}
	days := make([]pain.Day, 0, len(eligible))
	for day := range eligible {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	run := 1
	longest = 1
	for index := 1; index < len(days); index++ {
		if days[index].DaysSince(days[index-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest, run
}

// Engine computes stats against an injected clock and calendar zone.
type Engine struct {
	clock    func() time.Time
	location *time.Location
}

// NewEngine constructs an Engine. A nil clock defaults to time.Now and a nil zone to UTC.
func NewEngine(clock func() time.Time, location *time.Location) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &Engine{clock: clock, location: location}
}

// Today returns the current calendar day in the engine zone.
func (e *Engine) Today() pain.Day {
	return pain.DayOf(e.clock(), e.location)
}

// Location returns the engine zone.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Compute computes Stats for entries as of the engine's current day.
func (e *Engine) Compute(entries []pain.Entry) Stats {
	return ComputeStats(entries, e.Today(), e.location)
}

// WithLocation returns a copy of the engine observing days in loc.
func (e *Engine) WithLocation(loc *time.Location) *Engine {
	if loc == nil {
		return e
	}
	return &Engine{clock: e.clock, location: loc}
}
