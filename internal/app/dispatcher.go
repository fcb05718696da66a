// internal/app/dispatcher.go
package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"challenge_reminder_bot/internal/domain/reminder"
	"challenge_reminder_bot/internal/infra/telemetry"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Record kinds, also used as metric and log labels.
const (
	KindEvent     = "event"
	KindChallenge = "challenge"
)

const defaultFireTimeout = 30 * time.Second

// Dispatcher owns the event and challenge collections and keeps exactly one live
// job per schedulable record. Every mutation is validated, written to the store,
// and only then applied to memory and the scheduler; a failed write changes nothing.
type Dispatcher struct {
	mu         sync.Mutex
	events     []reminder.Event
	challenges []reminder.Challenge

	eventStore     reminder.Store[reminder.Event]
	challengeStore reminder.Store[reminder.Challenge]
	scheduler      reminder.Scheduler
	notifier       reminder.Notifier
	logger         *logrus.Entry
	fireTimeout    time.Duration
}

func NewDispatcher(
	eventStore reminder.Store[reminder.Event],
	challengeStore reminder.Store[reminder.Challenge],
	scheduler reminder.Scheduler,
	notifier reminder.Notifier,
	logger *logrus.Entry,
	fireTimeout time.Duration,
) *Dispatcher {
	if fireTimeout <= 0 {
		fireTimeout = defaultFireTimeout
	}
	return &Dispatcher{
		eventStore:     eventStore,
		challengeStore: challengeStore,
		scheduler:      scheduler,
		notifier:       notifier,
		logger:         logger,
		fireTimeout:    fireTimeout,
	}
}

// Rehydrate loads both collections and schedules a job for every schedulable record.
// Records with an unknown frequency or an undecodable schedule are kept but not scheduled.
func (d *Dispatcher) Rehydrate(ctx context.Context) error {
	events, err := d.eventStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	challenges, err := d.challengeStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load challenges: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Jobs from a previous Rehydrate would otherwise be orphaned.
	for _, e := range d.events {
		d.scheduler.Cancel(e.Job)
	}
	for _, c := range d.challenges {
		d.scheduler.Cancel(c.Job)
	}

	scheduled := 0
	for i := range events {
		events[i].ID = uuid.NewString()
		if d.rearm(KindEvent, &events[i].Reminder) {
			scheduled++
		}
	}
	for i := range challenges {
		challenges[i].ID = uuid.NewString()
		if d.rearm(KindChallenge, &challenges[i].Reminder) {
			scheduled++
		}
	}
	d.events = events
	d.challenges = challenges
	d.updateJobGauge()

	d.logger.WithFields(logrus.Fields{
		"events":     len(events),
		"challenges": len(challenges),
		"scheduled":  scheduled,
	}).Info("Reminders rehydrated")
	return nil
}

// rearm schedules a loaded record, logging instead of failing when it can't be.
func (d *Dispatcher) rearm(kind string, r *reminder.Reminder) bool {
	log := d.logger.WithFields(logrus.Fields{"kind": kind, "name": r.Name})
	if !r.Decoded() {
		log.WithField("time", r.TimeText).Warn("Stored schedule could not be decoded; record kept but not scheduled")
		return false
	}
	if !r.Rule.Schedulable() {
		log.WithField("frequency", r.Rule.Frequency).Warn("Unsupported frequency; record kept but not scheduled")
		return false
	}
	if err := d.arm(kind, r); err != nil {
		log.WithError(err).Error("Failed to schedule stored record")
		return false
	}
	return true
}

// arm registers a job for r and stores the handle on it. The job closure only
// captures the record id; everything it sends is read at fire time.
func (d *Dispatcher) arm(kind string, r *reminder.Reminder) error {
	id := r.ID
	h, err := d.scheduler.Schedule(r.Rule, func() { d.fire(kind, id) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s %q: %w", kind, r.Name, err)
	}
	r.Job = h
	return nil
}

// replaceJob cancels the record's current job before registering the new one,
// so there is never a moment with two live jobs for one record.
func (d *Dispatcher) replaceJob(kind string, r *reminder.Reminder) error {
	d.scheduler.Cancel(r.Job)
	r.Job = 0
	return d.arm(kind, r)
}

func (d *Dispatcher) fire(kind, id string) {
	log := d.logger.WithFields(logrus.Fields{
		"kind":      kind,
		"record_id": id,
		"fire_id":   uuid.NewString(),
	})

	delivery, name, ok := d.snapshot(kind, id)
	if !ok {
		log.Warn("Job fired for a record that no longer exists")
		telemetry.RecordFire(kind, "missing")
		return
	}
	log = log.WithField("name", name)

	ctx, cancel := context.WithTimeout(context.Background(), d.fireTimeout)
	defer cancel()

	var err error
	telemetry.TimeFunc(telemetry.DeliveryDuration, func() {
		err = d.notifier.Notify(ctx, delivery)
	})
	if err != nil {
		log.WithError(err).Error("Failed to deliver reminder")
		telemetry.RecordFire(kind, "failed")
		return
	}
	log.WithField("recipients", len(delivery.Mentions)).Info("Reminder delivered")
	telemetry.RecordFire(kind, "sent")
}

// snapshot copies what a fire needs so delivery runs without holding the lock.
func (d *Dispatcher) snapshot(kind, id string) (reminder.Delivery, string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch kind {
	case KindEvent:
		for _, e := range d.events {
			if e.ID == id {
				return reminder.Delivery{Target: e.Target, Mentions: slices.Clone(e.UserIDs), Text: e.Message}, e.Name, true
			}
		}
	case KindChallenge:
		for _, c := range d.challenges {
			if c.ID == id {
				return reminder.Delivery{Target: c.Target, Mentions: slices.Clone(c.Members), Text: c.Message}, c.Name, true
			}
		}
	}
	return reminder.Delivery{}, "", false
}

func (d *Dispatcher) commitEvents(ctx context.Context, next []reminder.Event) error {
	err := d.eventStore.Save(ctx, next)
	telemetry.RecordStoreWrite(KindEvent, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	d.events = next
	return nil
}

func (d *Dispatcher) commitChallenges(ctx context.Context, next []reminder.Challenge) error {
	err := d.challengeStore.Save(ctx, next)
	telemetry.RecordStoreWrite(KindChallenge, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	d.challenges = next
	return nil
}

func (d *Dispatcher) updateJobGauge() {
	n := 0
	for _, e := range d.events {
		if e.Job != 0 {
			n++
		}
	}
	for _, c := range d.challenges {
		if c.Job != 0 {
			n++
		}
	}
	telemetry.SetActiveJobs(n)
}

func cloneEvents(src []reminder.Event) []reminder.Event {
	out := make([]reminder.Event, len(src), len(src)+1)
	for i, e := range src {
		out[i] = e.Clone()
	}
	return out
}

func cloneChallenges(src []reminder.Challenge) []reminder.Challenge {
	out := make([]reminder.Challenge, len(src), len(src)+1)
	for i, c := range src {
		out[i] = c.Clone()
	}
	return out
}

// parseInputSchedule splits a combined schedule line when one is given, otherwise
// it uses the separate parts. The returned time text is what gets stored.
func parseInputSchedule(schedule, timeText, frequency, day string) (string, reminder.Rule, error) {
	if line := strings.TrimSpace(schedule); line != "" {
		var err error
		timeText, frequency, day, err = reminder.ParseScheduleLine(line)
		if err != nil {
			return "", reminder.Rule{}, err
		}
	}
	timeText = strings.TrimSpace(timeText)
	if timeText == "" {
		return "", reminder.Rule{}, ErrFieldRequired
	}
	rule, err := parseSchedule(timeText, frequency, day)
	if err != nil {
		return "", reminder.Rule{}, err
	}
	return timeText, rule, nil
}

// parseSchedule validates a time expression and recurrence in the order users see errors.
func parseSchedule(timeText, frequency, day string) (reminder.Rule, error) {
	at, err := reminder.ParseTimeSpec(timeText)
	if err != nil {
		return reminder.Rule{}, fmt.Errorf("%w: %w", ErrInvalidTime, err)
	}
	return reminder.BuildRule(frequency, at, day)
}
