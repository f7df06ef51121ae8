package reminder

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers one message. Implementations must be safe for concurrent
// use; the scheduler fires from timer goroutines.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay. An empty username skips
// authentication, which suits local relays and test servers.
type SMTPMailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
