// Package mail delivers transactional email through a pluggable backend.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/rjweb/internal/config"
)

type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the backend named by cfg.Provider.
func New(cfg config.MailConfig, logger *slog.Logger) (Sender, error) {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	switch cfg.Provider {
	case "postmark":
		return NewPostmarkSender(cfg.PostmarkToken, from), nil
	case "mailgun":
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, from, cfg.MailgunEU), nil
	case "log", "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
