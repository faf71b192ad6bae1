package sender

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPConfig holds mail relay parameters.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	ReplyTo   string
}

// SMTPSender delivers reminders through a plain SMTP relay.
type SMTPSender struct {
	cfg    SMTPConfig
	client *mail.Client
	logger *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{cfg: cfg, client: client, logger: logger}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	if s.cfg.ReplyTo != "" {
		if err := m.ReplyTo(s.cfg.ReplyTo); err != nil {
			return fmt.Errorf("set reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)

	// multipart/alternative: plain part first, HTML preferred
	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	s.logger.Info("email sent via smtp",
		zap.String("to", msg.To),
		zap.String("host", s.cfg.Host),
	)

	return nil
}
