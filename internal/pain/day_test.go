package pain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDayRoundTrip(t *testing.T) {
	day, err := ParseDay(" 2024-03-01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Year != 2024 || day.Month != time.March || day.Day != 1 {
		t.Fatalf("unexpected day %#v", day)
	}
	if day.String() != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", day.String())
	}
}

func TestParseDayRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "2024-13-01", "01/03/2024", "2024-02-30"} {
		if _, err := ParseDay(input); !errors.Is(err, ErrInvalidDay) {
			t.Fatalf("expected ErrInvalidDay for %q, got %v", input, err)
		}
	}
}

func TestDayArithmeticAcrossMonthAndYear(t *testing.T) {
	day := MustParseDay("2023-12-31")
	if next := day.AddDays(1); next.String() != "2024-01-01" {
		t.Fatalf("expected 2024-01-01, got %s", next)
	}
	if previous := MustParseDay("2024-03-01").AddDays(-1); previous.String() != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", previous)
	}
	if diff := MustParseDay("2024-03-31").DaysSince(MustParseDay("2024-03-01")); diff != 30 {
		t.Fatalf("expected 30 days, got %d", diff)
	}
	if MustParseDay("2024-02-25").Weekday() != time.Sunday {
		t.Fatalf("expected 2024-02-25 to be a Sunday")
	}
}

func TestDayOfUsesLocation(t *testing.T) {
	johannesburg := time.FixedZone("SAST", 2*60*60)
	instant := time.Date(2024, time.January, 1, 23, 30, 0, 0, time.UTC)
	if got := DayOf(instant, johannesburg); got.String() != "2024-01-02" {
		t.Fatalf("expected 2024-01-02 in SAST, got %s", got)
	}
	if got := DayOf(instant, nil); got.String() != "2024-01-01" {
		t.Fatalf("expected UTC fallback, got %s", got)
	}
}

func TestDayJSONEncodesAsString(t *testing.T) {
	payload, err := json.Marshal(Entry{Day: MustParseDay("2024-01-05"), Level: 3})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) != `{"date":"2024-01-05","level":3}` {
		t.Fatalf("unexpected payload %s", payload)
	}
	var decoded Entry
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Day != MustParseDay("2024-01-05") {
		t.Fatalf("unexpected decoded day %s", decoded.Day)
	}
}

func TestLoggedSameDay(t *testing.T) {
	loc := time.UTC
	logged := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)
	sameDay := Entry{Day: MustParseDay("2024-01-03"), LoggedAt: &logged}
	backfilled := Entry{Day: MustParseDay("2024-01-02"), LoggedAt: &logged}
	unknown := Entry{Day: MustParseDay("2024-01-01")}

	if !sameDay.LoggedSameDay(loc) {
		t.Fatalf("expected same-day entry")
	}
	if backfilled.LoggedSameDay(loc) {
		t.Fatalf("expected backfilled entry to be excluded")
	}
	if !unknown.LoggedSameDay(loc) {
		t.Fatalf("expected missing logged instant to count as same-day")
	}
}

func TestValidateLevelBounds(t *testing.T) {
	if err := ValidateLevel(0); err != nil {
		t.Fatalf("unexpected error for 0: %v", err)
	}
	if err := ValidateLevel(10); err != nil {
		t.Fatalf("unexpected error for 10: %v", err)
	}
	if err := ValidateLevel(11); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if err := ValidateLevel(-1); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}
