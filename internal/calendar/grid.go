// Package calendar lays pain entries out as Sunday-first week rows for the
// heat map and the month calendar.
package calendar

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

const (
	daysPerWeek   = 7
	heatMapWeeks  = 12
	lastWeekIndex = daysPerWeek - 1

	// MaxWeeks bounds the rows a single grid may hold.
	MaxWeeks = 1000
)

var (
	ErrRangeReversed = errors.New("calendar: start is after end")
	ErrRangeTooLarge = errors.New("calendar: range spans too many weeks")
)

// Cell is one day slot of the grid.
type Cell struct {
	Day          pain.Day `json:"date"`
	Level        *int     `json:"level"`
	// IsMonthStart marks the first cell of each month's label run, so the
	// grid's first cell carries it even when it is not the 1st.
	IsMonthStart bool     `json:"is_month_start"`
	IsFuture     bool     `json:"is_future"`
}

// Week holds seven slots, Sunday first. A nil slot is padding.
type Week [daysPerWeek]*Cell

// GridOptions controls how a grid is populated.
type GridOptions struct {
	// Levels maps days to their logged pain level.
	Levels map[pain.Day]int
	// Today marks cells strictly after it as future.
	Today pain.Day
	// ClipToRange leaves slots outside [start, end] empty instead of emitting padding days.
	ClipToRange bool
}

// WeekSpan returns the number of Sunday-first weeks covering [start, end].
func WeekSpan(start, end pain.Day) int {
	if start.After(end) {
		return 0
	}
	first := start.AddDays(-int(start.Weekday()))
	last := end.AddDays(lastWeekIndex - int(end.Weekday()))
	return last.DaysSince(first)/daysPerWeek + 1
}

// CheckRange reports whether [start, end] can be laid out as one grid.
func CheckRange(start, end pain.Day) error {
	if start.After(end) {
		return ErrRangeReversed
	}
	if WeekSpan(start, end) > MaxWeeks {
		return ErrRangeTooLarge
	}
	return nil
}

// BuildWeekGrid covers [start, end] with full weeks after snapping start back to
// its Sunday and end forward to its Saturday. A start after end yields no
// weeks; callers should reject ranges CheckRange refuses, since the grid stops
// at MaxWeeks rows.
func BuildWeekGrid(start, end pain.Day, opts GridOptions) []Week {
	if start.After(end) {
		return []Week{}
	}
	first := start.AddDays(-int(start.Weekday()))

	weekCount := WeekSpan(start, end)
	if weekCount > MaxWeeks {
		weekCount = MaxWeeks
	}

	weeks := make([]Week, 0, weekCount)
	var previous *Cell
	current := first
	for len(weeks) < weekCount {
		var week Week
		for slot := 0; slot < daysPerWeek; slot++ {
			day := current
			current = current.AddDays(1)
			if opts.ClipToRange && (day.Before(start) || day.After(end)) {
				continue
			}
			cell := &Cell{
				Day:      day,
				IsFuture: !opts.Today.IsZero() && day.After(opts.Today),
			}
			if level, ok := opts.Levels[day]; ok {
				levelCopy := level
				cell.Level = &levelCopy
			}
			cell.IsMonthStart = previous == nil || previous.Day.Month != day.Month || previous.Day.Year != day.Year
			week[slot] = cell
			previous = cell
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// BuildMonthGrid returns the calendar page for one month, padded with empty slots.
func BuildMonthGrid(year int, month time.Month, opts GridOptions) []Week {
	first := pain.NewDay(year, month, 1)
	last := pain.NewDay(year, month+1, 0)
	opts.ClipToRange = true
	return BuildWeekGrid(first, last, opts)
}

// DefaultHeatMapRange returns the last twelve weeks ending today.
func DefaultHeatMapRange(today pain.Day) (start pain.Day, end pain.Day) {
	return today.AddDays(-(heatMapWeeks*daysPerWeek - 1)), today
}

// Days returns the non-empty cells of the grid in order.
func Days(weeks []Week) []*Cell {
	cells := make([]*Cell, 0, len(weeks)*daysPerWeek)
	for _, week := range weeks {
		for _, cell := range week {
			if cell != nil {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}
