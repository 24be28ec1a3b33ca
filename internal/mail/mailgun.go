package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

const mailgunSendTimeout = 30 * time.Second

type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

// NewMailgunSender builds a Mailgun backend. eu selects the EU API region.
func NewMailgunSender(domain, apiKey, from string, eu bool) *MailgunSender {
	mg := mailgun.NewMailgun(domain, apiKey)
	if eu {
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &MailgunSender{mg: mg, from: from}
}

// SetAPIBase points the sender at a different API endpoint.
func (s *MailgunSender) SetAPIBase(url string) {
	s.mg.SetAPIBase(url)
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.from, msg.Subject, msg.TextBody, msg.To)
	if msg.HTMLBody != "" {
		m.SetHtml(msg.HTMLBody)
	}

	ctx, cancel := context.WithTimeout(ctx, mailgunSendTimeout)
	defer cancel()

	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}
	return nil
}
