package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPProvider delivers through an SMTP relay with mandatory TLS.
type SMTPProvider struct {
	from   string
	client *mail.Client
}

func NewSMTPProvider(cfg SMTPConfig) (*SMTPProvider, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSMandatory),
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
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPProvider{from: cfg.From, client: client}, nil
}

func (p *SMTPProvider) SendEmail(ctx context.Context, email *Email) error {
	msg, err := p.message(email)
	if err != nil {
		return err
	}
	if err := p.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via smtp: %w", err)
	}
	return nil
}

func (p *SMTPProvider) message(email *Email) (*mail.Msg, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(p.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(email.Subject)

	switch {
	case email.Text != "" && email.HTML != "":
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	case email.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
	}
	return msg, nil
}
