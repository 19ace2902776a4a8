package reminders

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime indicates a reminder time that is not HH:MM or HH:MM:SS.
var ErrInvalidTime = errors.New("reminders: invalid time of day")

// TimeOfDay is a wall-clock minute in the reminder zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM and HH:MM:SS. Seconds are dropped.
func ParseTimeOfDay(rawInput string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(rawInput)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, rawInput)
	}
	values := make([]int, len(parts))
	for index, part := range parts {
		if len(part) != 2 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, rawInput)
		}
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, rawInput)
		}
		values[index] = value
	}
	if values[0] > 23 || values[1] > 59 || (len(values) == 3 && values[2] > 59) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, rawInput)
	}
	return TimeOfDay{Hour: values[0], Minute: values[1]}, nil
}

// TimeOfDayAt returns the wall-clock minute of t observed in loc.
func TimeOfDayAt(t time.Time, loc *time.Location) TimeOfDay {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
