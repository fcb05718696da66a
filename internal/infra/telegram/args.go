package telegram

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf16"

	"challenge_reminder_bot/internal/domain/reminder"

	"gopkg.in/telebot.v3"
)

// splitArgs splits a command payload on "|", trimming every part.
func splitArgs(payload string) []string {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	parts := strings.Split(payload, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// commandPayload returns everything after the command word. Text mentions of users
// without a username are rewritten into <@id> tokens first, so they survive as ids.
func commandPayload(m *telebot.Message) string {
	if m == nil {
		return ""
	}
	text := withMentionTokens(m.Text, m.Entities)
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, "/") {
		return strings.TrimSpace(text)
	}
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx:])
}

// withMentionTokens replaces text_mention entities with <@id>. Entity offsets are
// UTF-16 code units.
func withMentionTokens(text string, entities telebot.Entities) string {
	var mentions []telebot.MessageEntity
	for _, e := range entities {
		if e.Type == telebot.EntityTMention && e.User != nil {
			mentions = append(mentions, e)
		}
	}
	if len(mentions) == 0 {
		return text
	}
	slices.SortFunc(mentions, func(a, b telebot.MessageEntity) int { return a.Offset - b.Offset })

	units := utf16.Encode([]rune(text))
	var b strings.Builder
	last := 0
	for _, e := range mentions {
		end := e.Offset + e.Length
		if e.Offset < last || end > len(units) {
			continue
		}
		b.WriteString(string(utf16.Decode(units[last:e.Offset])))
		b.WriteString(" " + reminder.FormatMention(e.User.ID) + " ")
		last = end
	}
	b.WriteString(string(utf16.Decode(units[last:])))
	return b.String()
}

// mentionTokens picks the <@id>-looking words out of free text.
func mentionTokens(s string) []string {
	return mentionToken.FindAllString(s, -1)
}

// targetOf is where replies and future fires for this message go: the forum topic
// when the message was posted in one, otherwise the chat.
func targetOf(m *telebot.Message) reminder.Target {
	t := reminder.Target{}
	if m == nil || m.Chat == nil {
		return t
	}
	t.ChatID = m.Chat.ID
	if m.TopicMessage {
		t.ThreadID = m.ThreadID
	}
	return t
}
