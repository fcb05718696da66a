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

// DefaultChallengeMessage is sent when a challenge is created without a message.
const DefaultChallengeMessage = "Time for your challenge!"

// ChallengeInput is what /create_challenge collects.
type ChallengeInput struct {
	Name        string
	Description string
	// Schedule is the combined "<time> <daily|weekly> [day]" form. When empty,
	// Time, Frequency and Day are used as given.
	Schedule  string
	Time      string
	Frequency string
	Day       string
	Message   string
	Creator   int64
	Target    reminder.Target
}

// ChallengeEdit replaces every editable field of the challenge called Name.
// Schedule is the combined "<time> <daily|weekly> [day]" form.
type ChallengeEdit struct {
	Name        string
	Caller      int64
	NewName     string
	Description string
	Schedule    string
	Message     string
}

// InviteInput names a challenge and the mention tokens to invite.
type InviteInput struct {
	Name     string
	Caller   int64
	Mentions []string
	Target   reminder.Target
}

// CreateChallenge validates, persists and schedules a new challenge with the creator
// as its first member.
func (d *Dispatcher) CreateChallenge(ctx context.Context, in ChallengeInput) (reminder.Challenge, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	message := strings.TrimSpace(in.Message)
	if name == "" {
		return reminder.Challenge{}, ErrFieldRequired
	}
	if message == "" {
		message = DefaultChallengeMessage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// A taken name wins over every other validation error.
	if d.challengeIndex(name) >= 0 {
		return reminder.Challenge{}, ErrDuplicateName
	}
	if description == "" {
		return reminder.Challenge{}, ErrFieldRequired
	}
	timeText, rule, err := parseInputSchedule(in.Schedule, in.Time, in.Frequency, in.Day)
	if err != nil {
		return reminder.Challenge{}, err
	}

	c := reminder.Challenge{
		Reminder: reminder.Reminder{
			ID:      uuid.NewString(),
			Name:    name,
			Target:  in.Target,
			Message: message,
		},
		Creator:     in.Creator,
		Description: description,
		Members:     []int64{in.Creator},
	}
	c.SetSchedule(timeText, rule)

	next := append(cloneChallenges(d.challenges), c)
	if err := d.commitChallenges(ctx, next); err != nil {
		return reminder.Challenge{}, err
	}

	stored := &d.challenges[len(d.challenges)-1]
	if err := d.arm(KindChallenge, &stored.Reminder); err != nil {
		return stored.Clone(), err
	}
	d.updateJobGauge()

	d.logger.WithFields(logrus.Fields{
		"kind":    KindChallenge,
		"name":    name,
		"creator": in.Creator,
		"job_id":  int(stored.Job),
	}).Info("Challenge created")
	return stored.Clone(), nil
}

// Join adds userID to the challenge members. The job is untouched: fires read
// the member list when they run.
func (d *Dispatcher) Join(ctx context.Context, name string, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.challengeIndex(name)
	if idx < 0 {
		return ErrNotFound
	}
	if d.challenges[idx].IsMember(userID) {
		return ErrAlreadyMember
	}

	next := cloneChallenges(d.challenges)
	next[idx].Members = append(next[idx].Members, userID)
	if err := d.commitChallenges(ctx, next); err != nil {
		return err
	}
	d.logger.WithFields(logrus.Fields{"name": name, "user_id": userID}).Info("Member joined challenge")
	return nil
}

// Leave removes userID from the members. A challenge never drops to zero members;
// its last member has to remove it instead.
func (d *Dispatcher) Leave(ctx context.Context, name string, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.challengeIndex(name)
	if idx < 0 {
		return ErrNotFound
	}
	c := &d.challenges[idx]
	if !c.IsMember(userID) {
		return ErrNotAMember
	}
	if len(c.Members) == 1 {
		if userID == c.Creator {
			return ErrCannotLeaveSoleCreator
		}
		return ErrLastMember
	}

	next := cloneChallenges(d.challenges)
	next[idx].Members = slices.DeleteFunc(next[idx].Members, func(id int64) bool { return id == userID })
	if err := d.commitChallenges(ctx, next); err != nil {
		return err
	}
	d.logger.WithFields(logrus.Fields{"name": name, "user_id": userID}).Info("Member left challenge")
	return nil
}

// RemoveChallenge deletes the challenge (creator only) and cancels its job.
func (d *Dispatcher) RemoveChallenge(ctx context.Context, name string, caller int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.challengeIndex(name)
	if idx < 0 {
		return ErrNotFound
	}
	if d.challenges[idx].Creator != caller {
		return ErrNotCreator
	}
	job := d.challenges[idx].Job
	next := slices.Delete(cloneChallenges(d.challenges), idx, idx+1)
	if err := d.commitChallenges(ctx, next); err != nil {
		return err
	}
	d.scheduler.Cancel(job)
	d.updateJobGauge()

	d.logger.WithFields(logrus.Fields{"kind": KindChallenge, "name": name}).Info("Challenge removed")
	return nil
}

// EditChallenge replaces name, description, schedule and message. The job is only
// replaced when frequency, time text or weekday changed; the delivery target stays
// the one chosen at creation.
func (d *Dispatcher) EditChallenge(ctx context.Context, in ChallengeEdit) (reminder.Challenge, error) {
	newName := strings.TrimSpace(in.NewName)
	description := strings.TrimSpace(in.Description)
	schedule := strings.TrimSpace(in.Schedule)
	message := strings.TrimSpace(in.Message)

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.challengeIndex(in.Name)
	if idx < 0 {
		return reminder.Challenge{}, ErrNotFound
	}
	old := d.challenges[idx]
	if old.Creator != in.Caller {
		return reminder.Challenge{}, ErrNotCreator
	}
	if newName == "" || description == "" || schedule == "" || message == "" {
		return reminder.Challenge{}, ErrFieldRequired
	}
	timeText, frequency, day, err := reminder.ParseScheduleLine(schedule)
	if err != nil {
		return reminder.Challenge{}, err
	}
	if newName != old.Name && d.challengeIndex(newName) >= 0 {
		return reminder.Challenge{}, ErrDuplicateName
	}
	rule, err := parseSchedule(timeText, frequency, day)
	if err != nil {
		return reminder.Challenge{}, err
	}

	changed := !old.Decoded() ||
		rule.Frequency != old.Rule.Frequency ||
		timeText != old.TimeText ||
		(rule.Frequency == reminder.FrequencyWeekly && rule.Day != old.Rule.Day)

	next := cloneChallenges(d.challenges)
	updated := &next[idx]
	updated.Name = newName
	updated.Description = description
	updated.Message = message
	updated.SetSchedule(timeText, rule)
	if err := d.commitChallenges(ctx, next); err != nil {
		return reminder.Challenge{}, err
	}

	stored := &d.challenges[idx]
	log := d.logger.WithFields(logrus.Fields{"kind": KindChallenge, "name": newName, "previous_name": old.Name})
	if changed {
		if err := d.replaceJob(KindChallenge, &stored.Reminder); err != nil {
			d.updateJobGauge()
			return stored.Clone(), err
		}
		d.updateJobGauge()
		log = log.WithField("job_id", int(stored.Job))
	}
	log.WithField("rescheduled", changed).Info("Challenge updated")
	return stored.Clone(), nil
}

// ListChallenges returns one display line per challenge.
func (d *Dispatcher) ListChallenges() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines := make([]string, 0, len(d.challenges))
	for _, c := range d.challenges {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s) - %d members", c.Name, c.Description, scheduleLabel(&c.Reminder), len(c.Members)))
	}
	return lines
}

// ChallengeNames returns challenge names containing query, case-insensitively.
func (d *Dispatcher) ChallengeNames(query string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := strings.ToLower(query)
	var names []string
	for _, c := range d.challenges {
		if strings.Contains(strings.ToLower(c.Name), q) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Invite notifies the mentioned users that they can join. Nothing is persisted.
func (d *Dispatcher) Invite(ctx context.Context, in InviteInput) ([]int64, error) {
	d.mu.Lock()
	idx := d.challengeIndex(in.Name)
	if idx < 0 {
		d.mu.Unlock()
		return nil, ErrNotFound
	}
	c := d.challenges[idx].Clone()
	d.mu.Unlock()

	if !c.IsMember(in.Caller) {
		return nil, ErrNotAMember
	}
	invited := slices.DeleteFunc(reminder.ParseMentions(in.Mentions), c.IsMember)
	if len(invited) == 0 {
		return nil, ErrNoInvitees
	}

	text := fmt.Sprintf("%s invites you to join the challenge %q: %s\nUse /join_challenge %s to join!",
		reminder.FormatMention(in.Caller), c.Name, c.Description, c.Name)
	if err := d.notifier.Notify(ctx, reminder.Delivery{Target: in.Target, Mentions: invited, Text: text}); err != nil {
		return nil, fmt.Errorf("failed to send invite: %w", err)
	}
	d.logger.WithFields(logrus.Fields{"name": c.Name, "caller": in.Caller, "invited": len(invited)}).Info("Challenge invite sent")
	return invited, nil
}

func (d *Dispatcher) challengeIndex(name string) int {
	return slices.IndexFunc(d.challenges, func(c reminder.Challenge) bool { return c.Name == name })
}
