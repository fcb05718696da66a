package app

import (
	"fmt"

	"challenge_reminder_bot/internal/domain/reminder"
)

// scheduleLabel renders "weekly on monday at 9:00 PM America/St_Johns (America/St_Johns)".
// Undecoded records fall back to their raw time text in UTC.
func scheduleLabel(r *reminder.Reminder) string {
	tz := r.Rule.At.Timezone
	if !r.Decoded() || tz == "" {
		tz = reminder.DefaultTimezone
	}
	freq := r.Rule.Describe()
	if freq == "" {
		freq = "unscheduled"
	}
	return fmt.Sprintf("%s at %s (%s)", freq, r.TimeText, tz)
}
