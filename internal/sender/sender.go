package sender

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Message is one rendered reminder email. The engine does not inspect
// the body; it only carries what the renderer produced.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Validate checks the fields every transport needs.
func (m *Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("message missing recipient")
	}
	if m.Subject == "" {
		return fmt.Errorf("message missing subject")
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("message missing body")
	}
	return nil
}

// Sender is the transport the orchestrator hands surviving candidates
// to. Implementations: SMTP, SES, and a log-only sender for development.
// A failed send is reported and left for the next run to reconsider;
// no transport retries internally.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// LogSender logs messages instead of delivering them (development mode).
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info("logging message (development mode)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
