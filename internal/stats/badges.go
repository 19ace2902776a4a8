package stats

// Badge is a static achievement unlocked by a predicate over Stats.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	unlock func(Stats) bool
}

// Unlocked reports whether the badge predicate holds for s.
func (b Badge) Unlocked(s Stats) bool {
	if b.unlock == nil {
		return false
	}
	return b.unlock(s)
}

var catalog = []Badge{
	{
		ID:          "first-log",
		Name:        "First Lily Pad",
		Description: "Log your first pain entry.",
		Icon:        "🌱",
		unlock:      func(s Stats) bool { return s.TotalEntries >= 1 },
	},
	{
		ID:          "seven-day-streak",
		Name:        "Seven-Day Stream",
		Description: "Log pain 7 days in a row.",
		Icon:        "🌊",
		unlock:      func(s Stats) bool { return s.LongestStreak >= 7 },
	},
	{
		ID:          "thirty-day-streak",
		Name:        "Pond Guardian",
		Description: "Log pain 30 days in a row.",
		Icon:        "🐸",
		unlock:      func(s Stats) bool { return s.LongestStreak >= 30 },
	},
	{
		ID:          "pain-free-days",
		Name:        "Gentle Waters",
		Description: "Have 5 pain-free days (level 0).",
		Icon:        "💧",
		unlock:      func(s Stats) bool { return s.PainFreeDayCount >= 5 },
	},
	{
		ID:          "storm-weathered",
		Name:        "Storm Weathered",
		Description: "Log at least 10 high pain days (7+).",
		Icon:        "⛈️",
		unlock:      func(s Stats) bool { return s.HighPainDayCount >= 10 },
	},
}

// Catalog returns the badge definitions in display order.
func Catalog() []Badge {
	badges := make([]Badge, len(catalog))
	copy(badges, catalog)
	return badges
}

// SplitBadges partitions the catalog into unlocked and locked badges,
// each preserving catalog order.
func SplitBadges(s Stats) (unlocked []Badge, locked []Badge) {
	unlocked = make([]Badge, 0, len(catalog))
	locked = make([]Badge, 0, len(catalog))
	for _, badge := range catalog {
		if badge.Unlocked(s) {
			unlocked = append(unlocked, badge)
			continue
		}
		locked = append(locked, badge)
	}
	return unlocked, locked
}
