// internal/domain/reminder/record.go
package reminder

import (
	"encoding/json"
	"slices"
)

// JobHandle identifies a live scheduler job. The zero value means no job.
type JobHandle int

// Target is the delivery destination chosen when the record is created.
// ThreadID is the forum topic inside ChatID, zero when the chat has no topics.
type Target struct {
	ChatID   int64
	ThreadID int
}

// Reminder holds the fields shared by events and challenges.
type Reminder struct {
	// ID is a process-local identity; names can change on edit, IDs cannot.
	ID       string
	Name     string
	TimeText string // user input as typed, kept for display and change detection
	Rule     Rule
	Target   Target
	Message  string
	Job      JobHandle

	// undecoded keeps the persisted schedule of a record whose rule could not be
	// decoded, so rewriting the collection does not destroy it.
	undecoded *ScheduleFields
}

// Decoded reports whether the record's persisted schedule produced a Rule.
func (r *Reminder) Decoded() bool {
	return r.undecoded == nil
}

// SetSchedule replaces the rule together with the raw time text it was parsed from.
func (r *Reminder) SetSchedule(timeText string, rule Rule) {
	r.TimeText = timeText
	r.Rule = rule
	r.undecoded = nil
}

// Event is a reminder with a recipient list fixed at creation.
type Event struct {
	Reminder
	UserIDs []int64
}

// Challenge is a reminder whose membership changes through join/leave.
type Challenge struct {
	Reminder
	Creator     int64
	Description string
	Members     []int64
}

func (e Event) Clone() Event {
	e.UserIDs = slices.Clone(e.UserIDs)
	return e
}

func (c Challenge) Clone() Challenge {
	c.Members = slices.Clone(c.Members)
	return c
}

func (c *Challenge) IsMember(userID int64) bool {
	return slices.Contains(c.Members, userID)
}

// ScheduleFields is the persisted schedule. Hour, Minute and Timezone are absent in
// legacy documents, which only carry an "HH:MM" time in UTC.
type ScheduleFields struct {
	Time      string  `json:"time"`
	Hour      *int    `json:"hour,omitempty"`
	Minute    *int    `json:"minute,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Frequency string  `json:"frequency"`
	Day       *string `json:"day"`
}

type target struct {
	ChannelID int64 `json:"channel_id"`
	ThreadID  *int  `json:"thread_id"`
}

type eventDoc struct {
	Name string `json:"name"`
	ScheduleFields
	target
	Message string  `json:"message"`
	UserIDs []int64 `json:"user_ids"`
}

type challengeDoc struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Creator     int64   `json:"creator"`
	Members     []int64 `json:"members"`
	ScheduleFields
	target
	Message string `json:"message"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	doc := eventDoc{
		Name:           e.Name,
		ScheduleFields: e.scheduleFields(),
		target:         encodeTarget(e.Target),
		Message:        e.Message,
		UserIDs:        nonNil(e.UserIDs),
	}
	return json.Marshal(doc)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var doc eventDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*e = Event{
		Reminder: decodeReminder(doc.Name, doc.ScheduleFields, doc.target, doc.Message),
		UserIDs:  doc.UserIDs,
	}
	return nil
}

func (c Challenge) MarshalJSON() ([]byte, error) {
	doc := challengeDoc{
		Name:           c.Name,
		Description:    c.Description,
		Creator:        c.Creator,
		Members:        nonNil(c.Members),
		ScheduleFields: c.scheduleFields(),
		target:         encodeTarget(c.Target),
		Message:        c.Message,
	}
	return json.Marshal(doc)
}

func (c *Challenge) UnmarshalJSON(b []byte) error {
	var doc challengeDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*c = Challenge{
		Reminder:    decodeReminder(doc.Name, doc.ScheduleFields, doc.target, doc.Message),
		Creator:     doc.Creator,
		Description: doc.Description,
		Members:     doc.Members,
	}
	return nil
}

func (r *Reminder) scheduleFields() ScheduleFields {
	if r.undecoded != nil {
		return *r.undecoded
	}
	return EncodeRule(r.TimeText, r.Rule)
}

func decodeReminder(name string, sf ScheduleFields, t target, message string) Reminder {
	r := Reminder{
		Name:     name,
		TimeText: sf.Time,
		Target:   Target{ChatID: t.ChannelID},
		Message:  message,
	}
	if t.ThreadID != nil {
		r.Target.ThreadID = *t.ThreadID
	}
	rule, err := DecodeRule(sf)
	if err != nil {
		raw := sf
		r.undecoded = &raw
		return r
	}
	r.Rule = rule
	return r
}

func encodeTarget(t Target) target {
	out := target{ChannelID: t.ChatID}
	if t.ThreadID != 0 {
		id := t.ThreadID
		out.ThreadID = &id
	}
	return out
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
