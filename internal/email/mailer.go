// Package email sends plain-text mail over SMTP. Delivery is best
// effort: the booking service calls Send in a background goroutine and
// only logs failures.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds the SMTP connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer sends mail through a single SMTP endpoint.
type Mailer struct {
	cfg  Config
	addr string
	auth smtp.Auth
}

// New builds a Mailer from SMTP settings. Auth is only attached when a
// username is configured, so a local relay without credentials works.
func New(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg, addr: cfg.Host + ":" + cfg.Port}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Send delivers a single plain-text message. The context is honoured
// only between the call and the dial; net/smtp itself does not take a
// context, which is acceptable for a fire-and-forget path.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(m.cfg.From, to, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
