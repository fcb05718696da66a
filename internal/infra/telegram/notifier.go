package telegram

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"challenge_reminder_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Telegram rejects messages longer than this many characters.
const maxMessageLen = 4096

var mentionToken = regexp.MustCompile(`<@!?(\d+)>`)

// Notifier delivers reminder snapshots through a Client, paced by a token bucket
// so a burst of simultaneous fires stays under Telegram's flood limits.
type Notifier struct {
	client  Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

func NewNotifier(client Client, ratePerSec int, logger *logrus.Entry) *Notifier {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	return &Notifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		logger:  logger,
	}
}

// Notify sends the message followed by a mention of every recipient. Whatever
// doesn't fit in one message spills into follow-up messages.
func (n *Notifier) Notify(ctx context.Context, d reminder.Delivery) error {
	for i, chunk := range renderDelivery(d) {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if err := n.client.SendMessage(d.Target.ChatID, d.Target.ThreadID, chunk); err != nil {
			return fmt.Errorf("send to chat %d (part %d): %w", d.Target.ChatID, i+1, err)
		}
	}
	n.logger.WithFields(logrus.Fields{
		"chat_id":    d.Target.ChatID,
		"thread_id":  d.Target.ThreadID,
		"recipients": len(d.Mentions),
	}).Debug("Notification sent")
	return nil
}

// renderDelivery builds the HTML messages for d, each within maxMessageLen.
func renderDelivery(d reminder.Delivery) []string {
	pieces := renderPieces(d.Text)
	if len(d.Mentions) > 0 {
		pieces = append(pieces, "\n")
		for i, id := range d.Mentions {
			if i > 0 {
				pieces = append(pieces, " ")
			}
			pieces = append(pieces, mentionLink(id))
		}
	}
	return packPieces(pieces, maxMessageLen)
}

// packPieces joins pieces greedily into messages of at most limit bytes. A piece is
// never split, so links and escape sequences stay intact.
func packPieces(pieces []string, limit int) []string {
	var (
		out []string
		b   strings.Builder
	)
	flush := func() {
		if chunk := strings.TrimSpace(b.String()); chunk != "" {
			out = append(out, chunk)
		}
		b.Reset()
	}
	for _, p := range pieces {
		if b.Len()+len(p) > limit {
			flush()
		}
		b.WriteString(p)
	}
	flush()
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// renderText escapes user text for HTML mode, turning <@id> tokens into user links.
func renderText(text string) string {
	return strings.Join(renderPieces(text), "")
}

// renderPieces is renderText split into units that must not be cut: one per rune
// of plain text and one per mention link.
func renderPieces(text string) []string {
	var pieces []string
	plain := func(s string) {
		for _, r := range s {
			pieces = append(pieces, html.EscapeString(string(r)))
		}
	}
	last := 0
	for _, m := range mentionToken.FindAllStringSubmatchIndex(text, -1) {
		plain(text[last:m[0]])
		id, err := strconv.ParseInt(text[m[2]:m[3]], 10, 64)
		if err != nil {
			plain(text[m[0]:m[1]])
		} else {
			pieces = append(pieces, mentionLink(id))
		}
		last = m[1]
	}
	plain(text[last:])
	return pieces
}

func mentionLink(id int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">@%d</a>`, id, id)
}
