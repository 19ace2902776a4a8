package reminders

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) TimeOfDay {
	t.Helper()
	parsed, err := ParseTimeOfDay(value)
	require.NoError(t, err)
	return parsed
}

func TestParseTimeOfDay(t *testing.T) {
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 0}, mustTime(t, "08:00"))
	assert.Equal(t, TimeOfDay{Hour: 19, Minute: 30}, mustTime(t, "19:30:45"))
	assert.Equal(t, "07:05", mustTime(t, " 07:05 ").String())

	for _, input := range []string{"", "8:00", "24:00", "12:60", "12:00:61", "ab:cd", "12-00", "12:00:00:00"} {
		_, err := ParseTimeOfDay(input)
		assert.True(t, errors.Is(err, ErrInvalidTime), "expected ErrInvalidTime for %q", input)
	}
}

func TestTimeOfDayAtConvertsZone(t *testing.T) {
	johannesburg := time.FixedZone("SAST", 2*60*60)
	instant := time.Date(2024, time.March, 1, 6, 0, 30, 0, time.UTC)

	assert.Equal(t, "08:00", TimeOfDayAt(instant, johannesburg).String())
	assert.Equal(t, "06:00", TimeOfDayAt(instant, nil).String())
}

func TestFindDueUsersMatchesExactMinute(t *testing.T) {
	preferences := []Preference{{
		UserID:           "user-1",
		MorningTime:      mustTime(t, "08:00"),
		AfternoonTime:    mustTime(t, "19:00"),
		MorningEnabled:   true,
		AfternoonEnabled: true,
	}}

	assert.Equal(t, []string{"user-1"}, FindDueUsers(preferences, mustTime(t, "08:00")))
	assert.Empty(t, FindDueUsers(preferences, mustTime(t, "08:01")))
	assert.Equal(t, []string{"user-1"}, FindDueUsers(preferences, mustTime(t, "19:00")))
}

func TestFindDueUsersRespectsDisabledSlots(t *testing.T) {
	preferences := []Preference{{
		UserID:           "user-1",
		MorningTime:      mustTime(t, "08:00"),
		AfternoonTime:    mustTime(t, "19:00"),
		MorningEnabled:   false,
		AfternoonEnabled: true,
	}}

	assert.Empty(t, FindDueUsers(preferences, mustTime(t, "08:00")))
	assert.Equal(t, []string{"user-1"}, FindDueUsers(preferences, mustTime(t, "19:00")))
}

func TestFindDueUsersReturnsEachUserOnce(t *testing.T) {
	preferences := []Preference{
		{UserID: "user-1", MorningTime: mustTime(t, "09:15"), AfternoonTime: mustTime(t, "09:15"), MorningEnabled: true, AfternoonEnabled: true},
		{UserID: "user-1", MorningTime: mustTime(t, "09:15"), MorningEnabled: true},
		{UserID: "user-2", AfternoonTime: mustTime(t, "09:15"), AfternoonEnabled: true},
		{UserID: "user-3", MorningTime: mustTime(t, "09:16"), MorningEnabled: true},
	}

	due := FindDueUsers(preferences, mustTime(t, "09:15"))
	sort.Strings(due)

	assert.Equal(t, []string{"user-1", "user-2"}, due)
	assert.Empty(t, FindDueUsers(nil, mustTime(t, "09:15")))
}
