package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"challenge_reminder_bot/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventInput is what /add_event collects.
type EventInput struct {
	Name string
	// Schedule is the combined "<time> <daily|weekly> [day]" form. When empty,
	// Time, Frequency and Day are used as given.
	Schedule  string
	Time      string
	Frequency string
	Day       string
	Message   string
	Mentions  []string
	Creator   int64
	Target    reminder.Target
}

// CreateEvent validates, persists and schedules a new event. Without mentions the
// creator is the only recipient.
func (d *Dispatcher) CreateEvent(ctx context.Context, in EventInput) (reminder.Event, error) {
	name := strings.TrimSpace(in.Name)
	message := strings.TrimSpace(in.Message)
	if name == "" {
		return reminder.Event{}, ErrFieldRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// A taken name wins over every other validation error.
	if d.eventIndex(name) >= 0 {
		return reminder.Event{}, ErrDuplicateName
	}
	if message == "" {
		return reminder.Event{}, ErrFieldRequired
	}
	timeText, rule, err := parseInputSchedule(in.Schedule, in.Time, in.Frequency, in.Day)
	if err != nil {
		return reminder.Event{}, err
	}

	recipients := reminder.ParseMentions(in.Mentions)
	if len(recipients) == 0 {
		recipients = []int64{in.Creator}
	}
	ev := reminder.Event{
		Reminder: reminder.Reminder{
			ID:      uuid.NewString(),
			Name:    name,
			Target:  in.Target,
			Message: message,
		},
		UserIDs: recipients,
	}
	ev.SetSchedule(timeText, rule)

	next := append(cloneEvents(d.events), ev)
	if err := d.commitEvents(ctx, next); err != nil {
		return reminder.Event{}, err
	}

	stored := &d.events[len(d.events)-1]
	if err := d.arm(KindEvent, &stored.Reminder); err != nil {
		return stored.Clone(), err
	}
	d.updateJobGauge()

	d.logger.WithFields(logrus.Fields{
		"kind":   KindEvent,
		"name":   name,
		"job_id": int(stored.Job),
	}).Info("Event created")
	return stored.Clone(), nil
}

// RemoveEvent deletes the event and cancels its job.
func (d *Dispatcher) RemoveEvent(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.eventIndex(name)
	if idx < 0 {
		return ErrNotFound
	}
	job := d.events[idx].Job
	next := slices.Delete(cloneEvents(d.events), idx, idx+1)
	if err := d.commitEvents(ctx, next); err != nil {
		return err
	}
	d.scheduler.Cancel(job)
	d.updateJobGauge()

	d.logger.WithFields(logrus.Fields{"kind": KindEvent, "name": name}).Info("Event removed")
	return nil
}

// ListEvents returns one display line per event.
func (d *Dispatcher) ListEvents() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines := make([]string, 0, len(d.events))
	for _, e := range d.events {
		lines = append(lines, fmt.Sprintf("- %s: %s - %d recipients", e.Name, scheduleLabel(&e.Reminder), len(e.UserIDs)))
	}
	return lines
}

func (d *Dispatcher) eventIndex(name string) int {
	return slices.IndexFunc(d.events, func(e reminder.Event) bool { return e.Name == name })
}
