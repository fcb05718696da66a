// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// Client sends an HTML message to a chat, inside a forum topic when threadID is set.
type Client interface {
	SendMessage(chatID int64, threadID int, html string) error
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(chatID int64, threadID int, html string) error {
	options := &telebot.SendOptions{
		ParseMode:             telebot.ModeHTML,
		ThreadID:              threadID,
		DisableWebPagePreview: true,
	}
	_, err := tba.bot.Send(&telebot.Chat{ID: chatID}, html, options)
	return err
}
