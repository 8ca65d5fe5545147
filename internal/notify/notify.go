// Package notify delivers platform e-mail (order reminders, deadline
// change announcements) through a plain SMTP relay.
package notify

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

var retryDelay = 2 * time.Second

// sendFunc matches smtp.SendMail minus the auth argument; swapped out in
// tests.
type sendFunc func(addr, from string, to []string, msg []byte) error

// Mailer sends UTF-8 e-mail through the configured relay, retrying
// transient failures up to a fixed budget.
type Mailer struct {
	addr     string
	from     string
	maxTries int
	send     sendFunc
}

func NewMailer(addr, from string, maxTries int) *Mailer {
	if maxTries < 1 {
		maxTries = 1
	}
	return &Mailer{
		addr:     addr,
		from:     from,
		maxTries: maxTries,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers one message to all recipients. The reason code tags the
// message header so the relay can filter or audit by category.
func (m *Mailer) Send(ctx context.Context, to []string, reason, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	msg := m.compose(to, reason, subject, body)

	var lastErr error
	for attempt := 1; attempt <= m.maxTries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = m.send(m.addr, m.from, to, msg)
		if lastErr == nil {
			return nil
		}
		log.Printf("ERROR: send mail (%s, attempt %d/%d): %v", reason, attempt, m.maxTries, lastErr)

		if attempt < m.maxTries {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("send mail %s after %d tries: %w", reason, m.maxTries, lastErr)
}

func (m *Mailer) compose(to []string, reason, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	// Subjects are Persian; Q-encode so any relay passes them through.
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "X-Pors-Reason: %s\r\n", reason)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
