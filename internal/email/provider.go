// Package email sends transactional customer emails.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	From     string
	APIKey   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

func NewProvider(cfg Config, logger *slog.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "log", "":
		return NewLogProvider(logger), nil
	case "resend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("resend api key is required")
		}
		return NewResendProvider(cfg.APIKey, cfg.From), nil
	case "smtp":
		return NewSMTPProvider(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'log', 'resend', or 'smtp'")
	}
}

func validateEmail(email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	if strings.TrimSpace(email.To) == "" {
		return fmt.Errorf("email recipient is required")
	}
	if email.HTML == "" && email.Text == "" {
		return fmt.Errorf("email body is empty")
	}
	return nil
}
