package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"unicode"
)

// ErrUnsafeHeader is returned when a recipient address would break the mail headers.
var ErrUnsafeHeader = errors.New("control characters in mail header")

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends plain-text mail via unauthenticated SMTP (Mailpit-compatible).
type EmailNotifier struct {
	addr     string
	from     string
	sendMail sendMailFunc
}

func NewEmailNotifier(host string, port int, from string) *EmailNotifier {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@demo-booking.local"
	}
	return &EmailNotifier{
		addr:     fmt.Sprintf("%s:%d", strings.TrimSpace(host), port),
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (n *EmailNotifier) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.RecipientEmail)
	if to == "" {
		return ErrNoRecipient
	}
	if strings.ContainsFunc(to, unicode.IsControl) {
		return fmt.Errorf("%w: recipient %q", ErrUnsafeHeader, to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sendMail(n.addr, nil, n.from, []string{to}, buildMessage(n.from, to, msg.Subject(), msg.Body())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// buildMessage renders a minimal RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		headerValue(subject),
		strings.ReplaceAll(body, "\n", "\r\n"),
	))
}

// headerValue folds control characters to spaces so a value stays on one header line.
func headerValue(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
