// Package mailer dispatches transactional and bulk email through an SMTP relay.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/noah-isme/academy-portal-api/pkg/config"
)

// Message is a single outbound email. FromName/FromEmail override the sender defaults.
type Message struct {
	To        string
	Subject   string
	HTML      string
	Text      string
	FromName  string
	FromEmail string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("recipient required")
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject required")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("body required")
	}
	return nil
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	dialer    *gomail.Dialer
	fromName  string
	fromEmail string
}

// NewSMTPSender builds an SMTP sender from configuration.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if cfg.Port == 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if cfg.FromEmail == "" {
		missing = append(missing, "SMTP_FROM")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing SMTP config: %s", strings.Join(missing, ", "))
	}
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}, nil
}

// Send delivers the message, honouring ctx cancellation before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.validate(); err != nil {
		return err
	}
	fromName, fromEmail := s.fromName, s.fromEmail
	if msg.FromEmail != "" {
		fromEmail = msg.FromEmail
	}
	if msg.FromName != "" {
		fromName = msg.FromName
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", fromEmail, fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// ConsoleSender logs messages instead of sending them. Used when no relay is configured.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender constructs a ConsoleSender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send validates and logs the message.
func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("email (console)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("from", msg.FromEmail),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}

// New picks the SMTP relay when enabled, falling back to the console sender.
func New(cfg config.SMTPConfig, logger *zap.Logger) (Sender, error) {
	if !cfg.Enabled {
		return NewConsoleSender(logger), nil
	}
	return NewSMTPSender(cfg)
}
