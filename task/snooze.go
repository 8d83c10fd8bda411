package task

import "time"

// Snooze directives understood by ResolveSnooze. Anything else is
// treated as an explicit timestamp chosen by the caller.
const (
	SnoozeHour     = "1h"
	SnoozeTomorrow = "tomorrow"
	SnoozeNextWeek = "nextweek"
)

const wakeHour = 9 // calendar snoozes wake at 09:00 local time

// ResolveSnooze maps a snooze directive to an absolute wake time.
//
// "1h" is exactly now plus sixty minutes. "tomorrow" and "nextweek"
// land on 09:00:00 local time of the next calendar day and of now+7
// days respectively. Any other string is passed through unmodified and
// assumed to already be a valid timestamp (e.g. from a date picker);
// no validation happens here; an invalid value fails at the server.
func ResolveSnooze(mode string, now time.Time) string {
	switch mode {
	case SnoozeHour:
		return now.Add(time.Hour).Format(time.RFC3339Nano)
	case SnoozeTomorrow:
		return atWakeHour(now.AddDate(0, 0, 1)).Format(time.RFC3339Nano)
	case SnoozeNextWeek:
		return atWakeHour(now.AddDate(0, 0, 7)).Format(time.RFC3339Nano)
	default:
		return mode
	}
}

func atWakeHour(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), wakeHour, 0, 0, 0, d.Location())
}
