package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func badgeIDs(badges []Badge) []string {
	ids := make([]string, 0, len(badges))
	for _, badge := range badges {
		ids = append(ids, badge.ID)
	}
	return ids
}

func TestSplitBadgesEmptyStatsLocksEverything(t *testing.T) {
	unlocked, locked := SplitBadges(Stats{})

	assert.Empty(t, unlocked)
	assert.Equal(t, []string{"first-log", "seven-day-streak", "thirty-day-streak", "pain-free-days", "storm-weathered"}, badgeIDs(locked))
}

func TestSplitBadgesFirstLogUnlocksOnAnyEntry(t *testing.T) {
	unlocked, _ := SplitBadges(Stats{TotalEntries: 1})

	assert.Equal(t, []string{"first-log"}, badgeIDs(unlocked))
}

func TestSplitBadgesPartitionsInCatalogOrder(t *testing.T) {
	unlocked, locked := SplitBadges(Stats{
		TotalEntries:     40,
		LongestStreak:    8,
		PainFreeDayCount: 5,
		HighPainDayCount: 9,
	})

	assert.Equal(t, []string{"first-log", "seven-day-streak", "pain-free-days"}, badgeIDs(unlocked))
	assert.Equal(t, []string{"thirty-day-streak", "storm-weathered"}, badgeIDs(locked))
	assert.Len(t, append(unlocked, locked...), len(Catalog()))
}

func TestSplitBadgesEverythingUnlocked(t *testing.T) {
	unlocked, locked := SplitBadges(Stats{
		TotalEntries:     60,
		LongestStreak:    30,
		PainFreeDayCount: 5,
		HighPainDayCount: 10,
	})

	assert.Len(t, unlocked, 5)
	assert.Empty(t, locked)
}

func TestCatalogReturnsCopy(t *testing.T) {
	badges := Catalog()
	badges[0].Name = "changed"

	assert.Equal(t, "First Lily Pad", Catalog()[0].Name)
}
