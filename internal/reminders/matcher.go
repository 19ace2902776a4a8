package reminders

// Preference is the matcher view of a user's reminder schedule.
type Preference struct {
	UserID           string
	MorningTime      TimeOfDay
	AfternoonTime    TimeOfDay
	MorningEnabled   bool
	AfternoonEnabled bool
}

// DueAt reports whether an enabled slot matches now to the minute.
func (p Preference) DueAt(now TimeOfDay) bool {
	if p.MorningEnabled && p.MorningTime == now {
		return true
	}
	return p.AfternoonEnabled && p.AfternoonTime == now
}

// FindDueUsers returns each user with a reminder due at now exactly once.
func FindDueUsers(preferences []Preference, now TimeOfDay) []string {
	seen := make(map[string]struct{}, len(preferences))
	due := make([]string, 0)
	for _, preference := range preferences {
		if preference.UserID == "" || !preference.DueAt(now) {
			continue
		}
		if _, ok := seen[preference.UserID]; ok {
			continue
		}
		seen[preference.UserID] = struct{}{}
		due = append(due, preference.UserID)
	}
	return due
}
