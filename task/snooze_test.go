package task

import (
	"testing"
	"time"
)

func TestResolveSnoozeHour(t *testing.T) {
	now := time.Date(2026, 3, 14, 22, 30, 15, 0, time.UTC)

	got := ResolveSnooze(SnoozeHour, now)
	want := "2026-03-14T23:30:15Z"
	if got != want {
		t.Errorf("ResolveSnooze(1h) = %q, want %q", got, want)
	}

	parsed, err := time.Parse(time.RFC3339Nano, got)
	if err != nil {
		t.Fatalf("resolved value does not parse: %v", err)
	}
	if d := parsed.Sub(now); d != time.Hour {
		t.Errorf("1h resolved %v ahead, want exactly 1h", d)
	}
}

func TestResolveSnoozeTomorrow(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	// Late evening: "tomorrow" is the next calendar day even though
	// 09:00 is less than 24h away.
	now := time.Date(2026, 3, 14, 23, 45, 0, 0, zone)

	got := ResolveSnooze(SnoozeTomorrow, now)
	want := time.Date(2026, 3, 15, 9, 0, 0, 0, zone).Format(time.RFC3339Nano)
	if got != want {
		t.Errorf("ResolveSnooze(tomorrow) = %q, want %q", got, want)
	}
}

func TestResolveSnoozeTomorrowCrossesMonth(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	got := ResolveSnooze(SnoozeTomorrow, now)
	want := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
	if got != want {
		t.Errorf("ResolveSnooze(tomorrow) across month = %q, want %q", got, want)
	}
}

func TestResolveSnoozeNextWeek(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, zone)

	got := ResolveSnooze(SnoozeNextWeek, now)
	want := time.Date(2026, 3, 21, 9, 0, 0, 0, zone).Format(time.RFC3339Nano)
	if got != want {
		t.Errorf("ResolveSnooze(nextweek) = %q, want %q", got, want)
	}
}

func TestResolveSnoozePassthrough(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Explicit timestamps from a date picker pass through untouched,
	// even when they are not valid; the server rejects them.
	for _, v := range []string{"2026-06-01T09:00:00Z", "not-a-timestamp"} {
		if got := ResolveSnooze(v, now); got != v {
			t.Errorf("ResolveSnooze(%q) = %q, want passthrough", v, got)
		}
	}
}
