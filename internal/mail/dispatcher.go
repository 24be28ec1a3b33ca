package mail

import (
	"context"
	"fmt"
	"html"
	"net/url"
)

// Dispatcher composes account emails and hands them to a Sender.
type Dispatcher struct {
	sender   Sender
	baseURL  string
	siteName string
}

func NewDispatcher(sender Sender, baseURL, siteName string) *Dispatcher {
	return &Dispatcher{sender: sender, baseURL: baseURL, siteName: siteName}
}

// VerificationLink returns the absolute URL that consumes token.
func (d *Dispatcher) VerificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email/%s", d.baseURL, url.PathEscape(token))
}

// SendVerification mails the verification link for token to email.
func (d *Dispatcher) SendVerification(ctx context.Context, email, token string) error {
	link := d.VerificationLink(token)

	text := fmt.Sprintf(
		"Please verify your email address for the %s admin panel by opening the link below:\n\n%s\n\nIf you did not expect this email you can ignore it.",
		d.siteName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Please verify your email address for the %s admin panel.</p><p><a href="%s">Verify email</a></p><p>If you did not expect this email you can ignore it.</p>`,
		html.EscapeString(d.siteName), html.EscapeString(link),
	)

	return d.sender.Send(ctx, Message{
		To:       email,
		Subject:  "Verify your email address",
		TextBody: text,
		HTMLBody: htmlBody,
	})
}
