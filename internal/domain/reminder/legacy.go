// internal/domain/reminder/legacy.go
package reminder

import (
	"fmt"
	"strings"
)

// legacyWeeklyDay is assumed for weekly records persisted without a day.
const legacyWeeklyDay Weekday = "monday"

// DecodeRule turns persisted fields into a Rule. Documents written before timezone
// support carry only "time" as "HH:MM"; they are read as UTC. A frequency that is
// neither daily nor weekly decodes without error into a rule that is not Schedulable.
func DecodeRule(sf ScheduleFields) (Rule, error) {
	var at TimeOfDay
	if sf.Hour != nil && sf.Minute != nil && sf.Timezone != nil {
		at = TimeOfDay{Hour: *sf.Hour, Minute: *sf.Minute, Timezone: *sf.Timezone}
		if at.Hour < 0 || at.Hour > 23 || at.Minute < 0 || at.Minute > 59 {
			return Rule{}, fmt.Errorf("%w: stored time %02d:%02d out of range", ErrInvalidFormat, at.Hour, at.Minute)
		}
	} else {
		h, m, err := parse24h(strings.TrimSpace(sf.Time))
		if err != nil {
			return Rule{}, fmt.Errorf("legacy time %q: %w", sf.Time, err)
		}
		at = TimeOfDay{Hour: h, Minute: m, Timezone: DefaultTimezone}
	}

	rule := Rule{Frequency: Frequency(strings.ToLower(sf.Frequency)), At: at}
	if rule.Frequency == FrequencyWeekly {
		rule.Day = legacyWeeklyDay
		if sf.Day != nil && *sf.Day != "" {
			rule.Day = Weekday(strings.ToLower(*sf.Day))
		}
	} else if sf.Day != nil {
		rule.Day = Weekday(strings.ToLower(*sf.Day))
	}
	if rule.Schedulable() {
		_, canonical, err := loadZone(at.Timezone)
		if err != nil {
			return Rule{}, err
		}
		rule.At.Timezone = canonical
	}
	return rule, nil
}

// EncodeRule produces the current persisted shape.
func EncodeRule(timeText string, r Rule) ScheduleFields {
	h, m, tz := r.At.Hour, r.At.Minute, r.At.Timezone
	sf := ScheduleFields{
		Time:      timeText,
		Hour:      &h,
		Minute:    &m,
		Timezone:  &tz,
		Frequency: string(r.Frequency),
	}
	if r.Day != "" {
		d := string(r.Day)
		sf.Day = &d
	}
	return sf
}
