package bot

import (
	"context"
	"strings"
)

// Button is an inline button attached to an outbound message. Either URL or
// WebAppURL is set, not both.
type Button struct {
	Text      string
	URL       string
	WebAppURL string
}

// Transport delivers outbound messages to the chat platform. Inbound
// delivery is assumed reliable and sequential per user.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageWithButton(ctx context.Context, chatID int64, text string, button Button) error
}

// Update is one inbound chat message, already stripped of platform framing.
type Update struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// Command returns the slash command of the update ("/start"), lowercased and
// with any @botname suffix removed, or "" for plain text.
func (u *Update) Command() string {
	text := strings.TrimSpace(u.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	command := strings.Fields(text)[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command)
}
