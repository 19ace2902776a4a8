package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

func TestWeekdayAverages(t *testing.T) {
	entries := []pain.Entry{
		{Day: pain.MustParseDay("2024-02-25"), Level: 4},
		{Day: pain.MustParseDay("2024-03-03"), Level: 6},
		{Day: pain.MustParseDay("2024-02-27"), Level: 1},
	}

	averages := WeekdayAverages(entries)

	require.Len(t, averages, 7)
	assert.Equal(t, "Sun", averages[0].Label)
	assert.InDelta(t, 5.0, averages[time.Sunday].Average, 1e-9)
	assert.Equal(t, 2, averages[time.Sunday].Count)
	assert.InDelta(t, 1.0, averages[time.Tuesday].Average, 1e-9)
	assert.Zero(t, averages[time.Monday].Average)
	assert.Empty(t, WeekdayAverages(nil))
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]pain.Entry{
		{Day: pain.MustParseDay("2024-01-01"), Level: 0},
		{Day: pain.MustParseDay("2024-01-02"), Level: 7},
		{Day: pain.MustParseDay("2024-01-03"), Level: 8},
	})

	require.NotNil(t, summary.Average)
	assert.InDelta(t, 5.0, *summary.Average, 1e-9)
	assert.Equal(t, 1, summary.PainFreeDayCount)
	assert.Equal(t, 2, summary.HighPainDayCount)
	assert.Equal(t, 3, summary.EntryCount)

	assert.Nil(t, Summarize(nil).Average)
}

func TestFilterRange(t *testing.T) {
	today := pain.MustParseDay("2024-03-31")
	entries := []pain.Entry{
		{Day: pain.MustParseDay("2024-01-01"), Level: 1},
		{Day: pain.MustParseDay("2024-03-02"), Level: 2},
		{Day: pain.MustParseDay("2024-03-01"), Level: 3},
	}

	within := FilterRange(entries, 30, today)
	require.Len(t, within, 1)
	assert.Equal(t, "2024-03-02", within[0].Day.String())

	assert.Len(t, FilterRange(entries, 0, today), 3)
	assert.Len(t, FilterRange(entries, 100, today), 3)
	assert.Len(t, FilterRange(entries, 90, today), 2)
}

func TestFilterRangeFallsBackToAllEntries(t *testing.T) {
	entries := []pain.Entry{{Day: pain.MustParseDay("2023-01-01"), Level: 5}}

	filtered := FilterRange(entries, 30, pain.MustParseDay("2024-03-31"))

	assert.Equal(t, entries, filtered)
	assert.Empty(t, FilterRange(nil, 30, pain.MustParseDay("2024-03-31")))
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	entries := []pain.Entry{
		{Day: pain.MustParseDay("2024-01-03"), Level: 3},
		{Day: pain.MustParseDay("2024-01-01"), Level: 1},
		{Day: pain.MustParseDay("2024-01-02"), Level: 2},
	}

	recent := Recent(entries, 2)

	require.Len(t, recent, 2)
	assert.Equal(t, "2024-01-03", recent[0].Day.String())
	assert.Equal(t, "2024-01-02", recent[1].Day.String())
	assert.Empty(t, Recent(entries, 0))
}
