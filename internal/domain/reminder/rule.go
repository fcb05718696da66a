// internal/domain/reminder/rule.go
package reminder

import (
	"errors"
	"fmt"
	"strings"
)

// Frequency is the recurrence kind. Values other than daily/weekly can only come
// from disk and are kept verbatim so the record survives a rewrite.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Weekday is a lowercase full English day name.
type Weekday string

var weekdays = map[Weekday]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

var (
	ErrInvalidFrequency = errors.New("frequency must be 'daily' or 'weekly'")
	ErrMissingWeekday   = errors.New("day must be specified for weekly reminders")
	ErrInvalidWeekday   = errors.New("invalid day, use a full day name like 'monday'")
)

// Rule describes when a reminder fires. It is never mutated after construction;
// a changed schedule is a new Rule.
type Rule struct {
	Frequency Frequency
	At        TimeOfDay
	Day       Weekday // weekly only
}

// BuildRule validates frequency and weekday against an already parsed time.
func BuildRule(frequency string, at TimeOfDay, weekday string) (Rule, error) {
	freq := Frequency(strings.ToLower(strings.TrimSpace(frequency)))
	switch freq {
	case FrequencyDaily:
		return Rule{Frequency: freq, At: at}, nil
	case FrequencyWeekly:
		day := Weekday(strings.ToLower(strings.TrimSpace(weekday)))
		if day == "" {
			return Rule{}, ErrMissingWeekday
		}
		if _, ok := weekdays[day]; !ok {
			return Rule{}, ErrInvalidWeekday
		}
		return Rule{Frequency: freq, At: at, Day: day}, nil
	default:
		return Rule{}, ErrInvalidFrequency
	}
}

// Schedulable reports whether the rule maps to a job.
func (r Rule) Schedulable() bool {
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		_, ok := weekdays[r.Day]
		return ok
	}
	return false
}

// CronSpec renders the rule for a five-field cron parser with a CRON_TZ prefix.
func (r Rule) CronSpec() (string, error) {
	if !r.Schedulable() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	dow := "*"
	if r.Frequency == FrequencyWeekly {
		dow = fmt.Sprintf("%d", weekdays[r.Day])
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * %s", r.At.Timezone, r.At.Minute, r.At.Hour, dow), nil
}

// Describe is the short human form used in listings, e.g. "weekly on monday".
func (r Rule) Describe() string {
	if r.Frequency == FrequencyWeekly && r.Day != "" {
		return fmt.Sprintf("weekly on %s", r.Day)
	}
	return string(r.Frequency)
}

// ParseScheduleLine splits "<time> <daily|weekly> [day]" into its parts. The time portion
// is returned verbatim; it still has to go through ParseTimeSpec.
func ParseScheduleLine(line string) (timeText, frequency, day string, err error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", "", "", ErrInvalidFrequency
	}
	idx := -1
	for i, p := range parts {
		f := Frequency(strings.ToLower(p))
		if f == FrequencyDaily || f == FrequencyWeekly {
			idx = i
			break
		}
	}
	if idx <= 0 {
		if idx == 0 {
			return "", "", "", ErrInvalidFormat
		}
		return "", "", "", ErrInvalidFrequency
	}
	timeText = strings.Join(parts[:idx], " ")
	frequency = strings.ToLower(parts[idx])
	if idx+1 < len(parts) {
		day = strings.ToLower(parts[idx+1])
	}
	return timeText, frequency, day, nil
}
