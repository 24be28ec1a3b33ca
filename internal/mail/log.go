package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them.
// Used when no mail provider is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mail")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not delivered, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}
