package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"challenge_reminder_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type reminderHandlers struct {
	ctx        context.Context
	dispatcher *app.Dispatcher
	baseLogger *logrus.Entry
}

// RegisterReminderHandlers registers the event and challenge commands.
func RegisterReminderHandlers(ctx context.Context, b *telebot.Bot, dispatcher *app.Dispatcher, baseLogger *logrus.Entry) {
	h := &reminderHandlers{ctx: ctx, dispatcher: dispatcher, baseLogger: baseLogger}

	b.Handle("/add_event", h.wrap("/add_event", h.addEvent))
	b.Handle("/list_events", h.wrap("/list_events", h.listEvents))
	b.Handle("/remove_event", h.wrap("/remove_event", h.removeEvent))

	b.Handle("/create_challenge", h.wrap("/create_challenge", h.createChallenge))
	b.Handle("/join_challenge", h.wrap("/join_challenge", h.joinChallenge))
	b.Handle("/leave_challenge", h.wrap("/leave_challenge", h.leaveChallenge))
	b.Handle("/list_challenges", h.wrap("/list_challenges", h.listChallenges))
	b.Handle("/invite_challenge", h.wrap("/invite_challenge", h.inviteChallenge))
	b.Handle("/remove_challenge", h.wrap("/remove_challenge", h.removeChallenge))
	b.Handle("/edit_challenge", h.wrap("/edit_challenge", h.editChallenge))
}

type commandFunc func(c telebot.Context, log *logrus.Entry) error

// wrap attaches the per-command logger and ignores updates without a human sender,
// such as channel posts.
func (h *reminderHandlers) wrap(name string, fn commandFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Chat() == nil {
			return nil
		}
		handlerLogger := h.baseLogger.WithFields(logrus.Fields{
			"handler":   name,
			"sender_id": c.Sender().ID,
			"chat_id":   c.Chat().ID,
		})
		handlerLogger.Info("Command received")
		return fn(c, handlerLogger)
	}
}

func (h *reminderHandlers) fail(c telebot.Context, log *logrus.Entry, err error) error {
	text, userFault := errorReply(err)
	if userFault {
		log.WithError(err).Warn("Command rejected")
	} else {
		log.WithError(err).Error("Command failed")
	}
	return c.Reply(text)
}

// failNamed is fail with name suggestions when nothing matched the given name.
func (h *reminderHandlers) failNamed(c telebot.Context, log *logrus.Entry, err error, name string) error {
	if errors.Is(err, app.ErrNotFound) {
		if names := h.dispatcher.ChallengeNames(name); len(names) > 0 {
			log.WithField("name", name).Warn("Challenge not found")
			return c.Reply(fmt.Sprintf("No challenge named %q. Did you mean: %s?", name, strings.Join(names, ", ")))
		}
	}
	return h.fail(c, log, err)
}

func (h *reminderHandlers) addEvent(c telebot.Context, log *logrus.Entry) error {
	args := splitArgs(commandPayload(c.Message()))
	// Expected format: /add_event name | <time> <frequency> [day] | message [| mentions]
	if len(args) < 3 || len(args) > 4 {
		log.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Reply(usageAddEvent)
	}
	var mentions []string
	if len(args) == 4 {
		mentions = strings.Fields(args[3])
	}

	ev, err := h.dispatcher.CreateEvent(h.ctx, app.EventInput{
		Name:     args[0],
		Schedule: args[1],
		Message:  args[2],
		Mentions: mentions,
		Creator:  c.Sender().ID,
		Target:   targetOf(c.Message()),
	})
	if err != nil {
		return h.fail(c, log, err)
	}
	log.WithField("name", ev.Name).Info("Event added via chat")
	return c.Reply(fmt.Sprintf("Event %q scheduled %s at %s for %d recipient(s).", ev.Name, ev.Rule.Describe(), ev.Rule.At, len(ev.UserIDs)))
}

func (h *reminderHandlers) listEvents(c telebot.Context, _ *logrus.Entry) error {
	lines := h.dispatcher.ListEvents()
	if len(lines) == 0 {
		return c.Reply("No events scheduled.")
	}
	return c.Reply("Events:\n" + strings.Join(lines, "\n"))
}

func (h *reminderHandlers) removeEvent(c telebot.Context, log *logrus.Entry) error {
	name := commandPayload(c.Message())
	if name == "" {
		return c.Reply(usageRemoveEvent)
	}
	if err := h.dispatcher.RemoveEvent(h.ctx, name); err != nil {
		return h.fail(c, log, err)
	}
	return c.Reply(fmt.Sprintf("Event %q removed.", name))
}

func (h *reminderHandlers) createChallenge(c telebot.Context, log *logrus.Entry) error {
	args := splitArgs(commandPayload(c.Message()))
	// Expected format: /create_challenge name | description | <time> <frequency> [day] [| message]
	if len(args) < 3 || len(args) > 4 {
		log.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Reply(usageCreateChallenge)
	}
	var message string
	if len(args) == 4 {
		message = args[3]
	}

	ch, err := h.dispatcher.CreateChallenge(h.ctx, app.ChallengeInput{
		Name:        args[0],
		Description: args[1],
		Schedule:    args[2],
		Message:     message,
		Creator:     c.Sender().ID,
		Target:      targetOf(c.Message()),
	})
	if err != nil {
		return h.fail(c, log, err)
	}
	log.WithField("name", ch.Name).Info("Challenge created via chat")
	return c.Reply(fmt.Sprintf("Challenge %q created, reminders %s at %s. Others can join with /join_challenge %s", ch.Name, ch.Rule.Describe(), ch.Rule.At, ch.Name))
}

func (h *reminderHandlers) joinChallenge(c telebot.Context, log *logrus.Entry) error {
	name := commandPayload(c.Message())
	if name == "" {
		return c.Reply("Usage: /join_challenge name")
	}
	if err := h.dispatcher.Join(h.ctx, name, c.Sender().ID); err != nil {
		return h.failNamed(c, log, err, name)
	}
	return c.Reply(fmt.Sprintf("You joined %q.", name))
}

func (h *reminderHandlers) leaveChallenge(c telebot.Context, log *logrus.Entry) error {
	name := commandPayload(c.Message())
	if name == "" {
		return c.Reply("Usage: /leave_challenge name")
	}
	if err := h.dispatcher.Leave(h.ctx, name, c.Sender().ID); err != nil {
		if errors.Is(err, app.ErrLastMember) {
			log.WithError(err).Warn("Command rejected")
			return c.Reply(lastMemberReply(name))
		}
		return h.failNamed(c, log, err, name)
	}
	return c.Reply(fmt.Sprintf("You left %q.", name))
}

func (h *reminderHandlers) listChallenges(c telebot.Context, _ *logrus.Entry) error {
	lines := h.dispatcher.ListChallenges()
	if len(lines) == 0 {
		return c.Reply("No challenges yet. Start one with /create_challenge.")
	}
	return c.Reply("Challenges:\n" + strings.Join(lines, "\n"))
}

func (h *reminderHandlers) inviteChallenge(c telebot.Context, log *logrus.Entry) error {
	args := splitArgs(commandPayload(c.Message()))
	if len(args) != 2 || args[0] == "" {
		return c.Reply(usageInvite)
	}
	invited, err := h.dispatcher.Invite(h.ctx, app.InviteInput{
		Name:     args[0],
		Caller:   c.Sender().ID,
		Mentions: mentionTokens(args[1]),
		Target:   targetOf(c.Message()),
	})
	if err != nil {
		if errors.Is(err, app.ErrNoInvitees) && strings.Contains(mentionToken.ReplaceAllString(args[1], ""), "@") {
			log.WithError(err).Warn("Command rejected")
			return c.Reply("No one to invite. Mention users from the member picker so their id is attached; plain @usernames cannot be resolved.")
		}
		return h.failNamed(c, log, err, args[0])
	}
	log.WithFields(logrus.Fields{"name": args[0], "invited": len(invited)}).Info("Invite delivered")
	return nil
}

func (h *reminderHandlers) removeChallenge(c telebot.Context, log *logrus.Entry) error {
	name := commandPayload(c.Message())
	if name == "" {
		return c.Reply("Usage: /remove_challenge name")
	}
	if err := h.dispatcher.RemoveChallenge(h.ctx, name, c.Sender().ID); err != nil {
		return h.failNamed(c, log, err, name)
	}
	return c.Reply(fmt.Sprintf("Challenge %q removed.", name))
}

func (h *reminderHandlers) editChallenge(c telebot.Context, log *logrus.Entry) error {
	args := splitArgs(commandPayload(c.Message()))
	// Expected format: /edit_challenge name | new name | description | <time> <frequency> [day] | message
	if len(args) != 5 {
		log.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Reply(usageEditChallenge)
	}
	ch, err := h.dispatcher.EditChallenge(h.ctx, app.ChallengeEdit{
		Name:        args[0],
		Caller:      c.Sender().ID,
		NewName:     args[1],
		Description: args[2],
		Schedule:    args[3],
		Message:     args[4],
	})
	if err != nil {
		return h.failNamed(c, log, err, args[0])
	}
	return c.Reply(fmt.Sprintf("Challenge %q updated, reminders %s at %s.", ch.Name, ch.Rule.Describe(), ch.Rule.At))
}
