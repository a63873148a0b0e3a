// Package mail delivers password reset and email verification links.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records outgoing mail instead of delivering it. Bodies carry
// single-use tokens and are never logged.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail not delivered, no SMTP host configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	baseURL string
}

func NewMailer(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	return m.send(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("We received a request to reset your password.\n\n"+
			"Use this link within the next hour:\n%s\n\n"+
			"If you did not ask for a reset, you can ignore this email.\n", link),
	})
}

func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.baseURL + "/api/auth/verify-email/" + url.PathEscape(token)
	return m.send(ctx, Message{
		To:      to,
		Subject: "Verify your email address",
		Body:    fmt.Sprintf("Confirm your email address by opening this link:\n%s\n", link),
	})
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q: %w", msg.Subject, err)
	}
	return nil
}
