package stats

import (
	"time"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayAverage is the mean level of all entries falling on one day of the week.
type WeekdayAverage struct {
	Weekday time.Weekday `json:"-"`
	Label   string       `json:"weekday"`
	Average float64      `json:"average"`
	Count   int          `json:"count"`
}

// WeekdayAverages returns Sunday through Saturday averages. Weekdays without
// entries report 0. No entries yields no rows.
func WeekdayAverages(entries []pain.Entry) []WeekdayAverage {
	if len(entries) == 0 {
		return []WeekdayAverage{}
	}
	var sums, counts [7]int
	for _, entry := range entries {
		weekday := entry.Day.Weekday()
		sums[weekday] += entry.Level
		counts[weekday]++
	}
	averages := make([]WeekdayAverage, 0, len(weekdayLabels))
	for index, label := range weekdayLabels {
		row := WeekdayAverage{Weekday: time.Weekday(index), Label: label, Count: counts[index]}
		if counts[index] > 0 {
			row.Average = float64(sums[index]) / float64(counts[index])
		}
		averages = append(averages, row)
	}
	return averages
}

// RangeSummary describes the entries of a report range.
type RangeSummary struct {
	Average          *float64 `json:"average"`
	PainFreeDayCount int      `json:"pain_free_day_count"`
	HighPainDayCount int      `json:"high_pain_day_count"`
	EntryCount       int      `json:"entry_count"`
}

// Summarize aggregates entries that were already selected for a report range.
func Summarize(entries []pain.Entry) RangeSummary {
	var total runningAverage
	summary := RangeSummary{}
	for _, entry := range entries {
		total.add(entry.Level)
		if entry.IsPainFree() {
			summary.PainFreeDayCount++
		}
		if entry.IsHighPain() {
			summary.HighPainDayCount++
		}
	}
	summary.EntryCount = total.count
	summary.Average = total.value()
	return summary
}

// FilterRange keeps entries dated on or after today-(days-1). A non-positive
// days keeps everything. When data exists but nothing falls inside the range,
// all entries are returned so charts never go blank.
func FilterRange(entries []pain.Entry, days int, today pain.Day) []pain.Entry {
	if days <= 0 {
		return entries
	}
	cutoff := today.AddDays(-(days - 1))
	within := make([]pain.Entry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Day.Before(cutoff) {
			within = append(within, entry)
		}
	}
	if len(within) == 0 && len(entries) > 0 {
		return entries
	}
	return within
}

// Recent returns up to limit entries ordered newest first.
func Recent(entries []pain.Entry, limit int) []pain.Entry {
	if limit <= 0 || len(entries) == 0 {
		return []pain.Entry{}
	}
	sorted := pain.SortByDay(entries)
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	recent := make([]pain.Entry, 0, len(sorted))
	for index := len(sorted) - 1; index >= 0; index-- {
		recent = append(recent, sorted[index])
	}
	return recent
}
