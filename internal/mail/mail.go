// Package mail delivers reminder emails.
package mail

import (
	"context"
	"log/slog"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a message. Implementations make exactly one delivery attempt.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs messages instead of sending them. It is used when no
// provider key is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the message recipient and subject.
func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
