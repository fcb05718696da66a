package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"

	"challenge_reminder_bot/internal/app"
	"challenge_reminder_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID   int64
	threadID int
	html     string
}

type fakeClient struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeClient) SendMessage(chatID int64, threadID int, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, threadID, html})
	return nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Pushups", []string{"Pushups"}},
		{"Pushups | do 20 |   9:00 PM daily ", []string{"Pushups", "do 20", "9:00 PM daily"}},
		{"a||b", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		if got := splitArgs(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommandPayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		msg  *telebot.Message
		want string
	}{
		{"nil", nil, ""},
		{"bare command", &telebot.Message{Text: "/list_events"}, ""},
		{"bot suffix", &telebot.Message{Text: "/join_challenge@ReminderBot Pushups"}, "Pushups"},
		{"newline separator", &telebot.Message{Text: "/remove_event\n  Standup  "}, "Standup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandPayload(tt.msg); got != tt.want {
				t.Fatalf("commandPayload = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandPayloadRewritesTextMentions(t *testing.T) {
	t.Parallel()
	// "😀" is two UTF-16 code units, so "Bob" starts at offset 27.
	msg := &telebot.Message{
		Text: "/invite_challenge Run | 😀 Bob",
		Entities: telebot.Entities{
			{Type: telebot.EntityCommand, Offset: 0, Length: 17},
			{Type: telebot.EntityTMention, Offset: 27, Length: 3, User: &telebot.User{ID: 77}},
		},
	}
	args := splitArgs(commandPayload(msg))
	if len(args) != 2 || args[0] != "Run" {
		t.Fatalf("args = %q", args)
	}
	if got := mentionTokens(args[1]); !slices.Equal(got, []string{"<@77>"}) {
		t.Fatalf("mentionTokens(%q) = %q", args[1], got)
	}
}

func TestTargetOf(t *testing.T) {
	t.Parallel()
	chat := &telebot.Chat{ID: -100}
	if got := targetOf(&telebot.Message{Chat: chat, ThreadID: 9, TopicMessage: true}); got != (reminder.Target{ChatID: -100, ThreadID: 9}) {
		t.Fatalf("topic target = %+v", got)
	}
	// Replies outside topics carry a thread id that is not a topic.
	if got := targetOf(&telebot.Message{Chat: chat, ThreadID: 9}); got != (reminder.Target{ChatID: -100}) {
		t.Fatalf("plain target = %+v", got)
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()
	got := renderText(`<@5> says "lift" & <b>stretch</b>`)
	want := `<a href="tg://user?id=5">@5</a> says &#34;lift&#34; &amp; &lt;b&gt;stretch&lt;/b&gt;`
	if got != want {
		t.Fatalf("renderText = %q, want %q", got, want)
	}
}

func TestNotifySendsToTargetWithMentions(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	n := NewNotifier(client, 100, quietLogger())

	err := n.Notify(context.Background(), reminder.Delivery{
		Target:   reminder.Target{ChatID: -100, ThreadID: 3},
		Mentions: []int64{1, 2},
		Text:     "Time for your challenge!",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	m := client.sent[0]
	if m.chatID != -100 || m.threadID != 3 {
		t.Fatalf("sent to %d/%d", m.chatID, m.threadID)
	}
	want := "Time for your challenge!\n" + mentionLink(1) + " " + mentionLink(2)
	if m.html != want {
		t.Fatalf("html = %q, want %q", m.html, want)
	}
}

func TestNotifySplitsLongMentionLists(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	n := NewNotifier(client, 1000, quietLogger())

	ids := make([]int64, 200)
	for i := range ids {
		ids[i] = 1_000_000_000 + int64(i)
	}
	if err := n.Notify(context.Background(), reminder.Delivery{Target: reminder.Target{ChatID: 1}, Mentions: ids, Text: "Go"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(client.sent) < 3 {
		t.Fatalf("sent %d messages, want at least 3", len(client.sent))
	}
	links := 0
	for _, m := range client.sent {
		if len(m.html) > maxMessageLen {
			t.Fatalf("message of %d chars exceeds limit", len(m.html))
		}
		links += strings.Count(m.html, "tg://user?id=")
	}
	if links != len(ids) {
		t.Fatalf("links = %d, want %d", links, len(ids))
	}
}

func TestNotifySplitsLongText(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	n := NewNotifier(client, 1000, quietLogger())

	text := strings.Repeat("abc & <@5> ", 1000)
	if err := n.Notify(context.Background(), reminder.Delivery{Target: reminder.Target{ChatID: 1}, Mentions: []int64{9}, Text: text}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(client.sent) < 2 {
		t.Fatalf("sent %d messages, want at least 2", len(client.sent))
	}
	var escaped, links int
	for i, m := range client.sent {
		if len(m.html) > maxMessageLen {
			t.Fatalf("message %d has %d chars, exceeds limit", i, len(m.html))
		}
		if strings.Count(m.html, "&") != strings.Count(m.html, "&amp;") {
			t.Fatalf("message %d cuts an escape sequence: %q", i, m.html)
		}
		if strings.Count(m.html, "<a ") != strings.Count(m.html, "</a>") {
			t.Fatalf("message %d cuts a link: %q", i, m.html)
		}
		escaped += strings.Count(m.html, "&amp;")
		links += strings.Count(m.html, mentionLink(5))
	}
	if escaped != 1000 || links != 1000 {
		t.Fatalf("escaped = %d, links = %d, want 1000 each", escaped, links)
	}
	if last := client.sent[len(client.sent)-1].html; !strings.HasSuffix(last, mentionLink(9)) {
		t.Fatalf("last message does not end with the recipient mention: %q", last)
	}
}

func TestNotifyReturnsClientError(t *testing.T) {
	t.Parallel()
	client := &fakeClient{err: errors.New("chat not found")}
	n := NewNotifier(client, 10, quietLogger())
	err := n.Notify(context.Background(), reminder.Delivery{Target: reminder.Target{ChatID: 1}, Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestNotifyHonoursContext(t *testing.T) {
	t.Parallel()
	n := NewNotifier(&fakeClient{}, 1, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Notify(ctx, reminder.Delivery{Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestErrorReply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err       error
		contains  string
		userFault bool
	}{
		{fmt.Errorf("%w: %w", app.ErrInvalidTime, &reminder.UnknownTimezoneError{Zone: "Mars/Base"}), "Mars/Base", true},
		{fmt.Errorf("%w: %w", app.ErrInvalidTime, reminder.ErrInvalidFormat), "Invalid time", true},
		{reminder.ErrMissingWeekday, "need a day", true},
		{app.ErrCannotLeaveSoleCreator, "/remove_challenge", true},
		{app.ErrLastMember, "creator can still remove", true},
		{fmt.Errorf("%w: disk full", app.ErrPersist), "nothing was modified", false},
		{errors.New("boom"), "Something went wrong", false},
	}
	for _, tt := range tests {
		text, userFault := errorReply(tt.err)
		if !strings.Contains(text, tt.contains) || userFault != tt.userFault {
			t.Errorf("errorReply(%v) = %q, %v; want %q, %v", tt.err, text, userFault, tt.contains, tt.userFault)
		}
	}
}

func TestLastMemberReply(t *testing.T) {
	t.Parallel()
	got := lastMemberReply("Pushups")
	for _, want := range []string{"last member", "creator can still remove", "/remove_challenge Pushups"} {
		if !strings.Contains(got, want) {
			t.Errorf("lastMemberReply = %q, missing %q", got, want)
		}
	}
}

func TestHelpTextListsChallenges(t *testing.T) {
	t.Parallel()
	got := helpText([]string{"Push<ups>"})
	if !strings.Contains(got, "<code>Push&lt;ups&gt;</code>") {
		t.Fatalf("help text missing escaped challenge name:\n%s", got)
	}
	if strings.Contains(helpText(nil), "Open challenges") {
		t.Fatal("empty challenge list should be omitted")
	}
}
