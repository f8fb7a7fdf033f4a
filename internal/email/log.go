package email

import (
	"context"
	"log/slog"

	"github.com/User-Emin/kattenbak-sub003/internal/logging"
)

// LogProvider writes emails to the log instead of delivering them. It is the
// default for local development.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) SendEmail(ctx context.Context, email *Email) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	logging.FromContext(ctx, p.logger).Info("email not delivered, log provider active",
		"to", email.To,
		"subject", email.Subject,
		"text_bytes", len(email.Text),
		"html_bytes", len(email.HTML),
	)
	return nil
}
