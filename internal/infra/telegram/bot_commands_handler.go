// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"html"
	"strings"

	"challenge_reminder_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Commands is the menu published with SetCommands.
var Commands = []telebot.Command{
	{Text: "add_event", Description: "Schedule a recurring reminder"},
	{Text: "list_events", Description: "List scheduled events"},
	{Text: "remove_event", Description: "Remove an event"},
	{Text: "create_challenge", Description: "Start a challenge others can join"},
	{Text: "join_challenge", Description: "Join a challenge"},
	{Text: "leave_challenge", Description: "Leave a challenge"},
	{Text: "list_challenges", Description: "List challenges"},
	{Text: "invite_challenge", Description: "Invite users to a challenge"},
	{Text: "edit_challenge", Description: "Edit a challenge you created"},
	{Text: "remove_challenge", Description: "Remove a challenge you created"},
	{Text: "help", Description: "Show usage"},
}

func RegisterBotCommands(
	b *telebot.Bot,
	dispatcher *app.Dispatcher,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /start command")

		return c.Reply(fmt.Sprintf("Hi %s! I send recurring reminders to this chat. Create an event for a fixed group, or a challenge people can join. Use /help for the command list.", c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /help command")

		return c.Reply(helpText(dispatcher.ChallengeNames("")), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	})
}

func helpText(challenges []string) string {
	var helpText strings.Builder
	helpText.WriteString("<b>Events</b> (fixed recipients)\n")
	helpText.WriteString("<code>/add_event name | 9:00 PM America/New_York weekly friday | message | @user1 @user2</code>\n")
	helpText.WriteString("<code>/list_events</code>\n")
	helpText.WriteString("<code>/remove_event name</code>\n\n")

	helpText.WriteString("<b>Challenges</b> (anyone can join)\n")
	helpText.WriteString("<code>/create_challenge name | description | 07:30 daily | message</code>\n")
	helpText.WriteString("<code>/join_challenge name</code>, <code>/leave_challenge name</code>\n")
	helpText.WriteString("<code>/invite_challenge name | @user1 @user2</code>\n")
	helpText.WriteString("<code>/edit_challenge name | new name | description | 08:00 weekly monday | message</code>\n")
	helpText.WriteString("<code>/list_challenges</code>, <code>/remove_challenge name</code>\n\n")

	helpText.WriteString("Times are HH:MM or H:MM AM/PM with an optional IANA timezone (default UTC). ")
	helpText.WriteString("Weekly reminders need a day name.")

	if len(challenges) > 0 {
		quoted := make([]string, len(challenges))
		for i, name := range challenges {
			quoted[i] = "<code>" + html.EscapeString(name) + "</code>"
		}
		helpText.WriteString("\n\nOpen challenges: " + strings.Join(quoted, ", "))
	}
	return helpText.String()
}
