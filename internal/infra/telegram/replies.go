package telegram

import (
	"errors"

	"challenge_reminder_bot/internal/app"
	"challenge_reminder_bot/internal/domain/reminder"
)

const (
	usageAddEvent        = "Usage: /add_event name | <time> <daily|weekly> [day] | message [| @mentions]"
	usageRemoveEvent     = "Usage: /remove_event name"
	usageCreateChallenge = "Usage: /create_challenge name | description | <time> <daily|weekly> [day] [| message]"
	usageEditChallenge   = "Usage: /edit_challenge name | new name | description | <time> <daily|weekly> [day] | message"
	usageInvite          = "Usage: /invite_challenge name | @mentions"
	timeHint             = "Use HH:MM or H:MM AM/PM, optionally followed by a timezone, e.g. 9:00 PM America/New_York."
)

// lastMemberReply explains a rejected leave by the only remaining member.
func lastMemberReply(name string) string {
	return "You are the last member of \"" + name + "\" and cannot leave it. " +
		"The creator can still remove it with /remove_challenge " + name + "."
}

// errorReply maps a dispatcher error to the message shown to the user. The bool
// is false for errors that are not the user's fault.
func errorReply(err error) (string, bool) {
	switch {
	case errors.Is(err, reminder.ErrUnknownTimezone):
		var tzErr *reminder.UnknownTimezoneError
		if errors.As(err, &tzErr) {
			return "Unknown timezone \"" + tzErr.Zone + "\". Use an IANA name such as Europe/Berlin or UTC.", true
		}
		return "Unknown timezone. Use an IANA name such as Europe/Berlin or UTC.", true
	case errors.Is(err, app.ErrInvalidTime), errors.Is(err, reminder.ErrInvalidFormat):
		return "Invalid time. " + timeHint, true
	case errors.Is(err, reminder.ErrInvalidFrequency):
		return "Frequency must be 'daily' or 'weekly'.", true
	case errors.Is(err, reminder.ErrMissingWeekday):
		return "Weekly reminders need a day, e.g. '10:00 weekly monday'.", true
	case errors.Is(err, reminder.ErrInvalidWeekday):
		return "Invalid day. Use a full day name like 'monday'.", true
	case errors.Is(err, app.ErrDuplicateName):
		return "That name is already taken.", true
	case errors.Is(err, app.ErrNotFound):
		return "Nothing with that name exists.", true
	case errors.Is(err, app.ErrAlreadyMember):
		return "You are already in this challenge.", true
	case errors.Is(err, app.ErrNotAMember):
		return "You are not in this challenge.", true
	case errors.Is(err, app.ErrCannotLeaveSoleCreator):
		return "You are the only member. Use /remove_challenge to delete it instead.", true
	case errors.Is(err, app.ErrLastMember):
		return "You are the last member. The creator can still remove the challenge with /remove_challenge.", true
	case errors.Is(err, app.ErrNotCreator):
		return "Only the creator of the challenge can do that.", true
	case errors.Is(err, app.ErrFieldRequired):
		return "All fields are required.", true
	case errors.Is(err, app.ErrNoInvitees):
		return "No one to invite: mention users who are not members yet.", true
	case errors.Is(err, app.ErrPersist):
		return "Could not save the change, nothing was modified. Please try again later.", false
	default:
		return "Something went wrong. Please try again later.", false
	}
}
