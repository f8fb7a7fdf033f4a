package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	BaseURL     string `env:"BASE_URL" validate:"omitempty,url"`
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development staging production"`

	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001"`
	ShopURL           string   `env:"SHOP_URL" validate:"omitempty,url"`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	RateLimitMax         int           `env:"RATE_LIMIT_MAX" envDefault:"100" validate:"gte=1"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m" validate:"gt=0"`
	LoginRateLimitMax    int           `env:"LOGIN_RATE_LIMIT_MAX" envDefault:"5" validate:"gte=1"`
	LoginRateLimitWindow time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"15m" validate:"gt=0"`

	JWTSecret         string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h" validate:"gt=0"`
	AdminEmail        string        `env:"ADMIN_EMAIL,required" validate:"required,email"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH,required" validate:"required"`

	MollieAPIKey      string        `env:"MOLLIE_API_KEY,required" validate:"required"`
	MollieBaseURL     string        `env:"MOLLIE_BASE_URL" envDefault:"https://api.mollie.com/" validate:"required,url"`
	MollieTimeout     time.Duration `env:"MOLLIE_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	MollieWebhookURL  string        `env:"MOLLIE_WEBHOOK_URL" validate:"omitempty,url"`
	CheckoutReturnURL string        `env:"CHECKOUT_RETURN_URL" validate:"omitempty,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RateLimitStore        string `env:"RATE_LIMIT_STORE" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=RateLimitStore redis"`

	QueueProvider    string   `env:"QUEUE_PROVIDER" envDefault:"memory" validate:"oneof=memory kafka"`
	QueueBufferSize  int      `env:"QUEUE_BUFFER_SIZE" envDefault:"1024" validate:"gt=0"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic       string   `env:"KAFKA_TOPIC" envDefault:"payment-reconciliation"`
	KafkaGroupID     string   `env:"KAFKA_GROUP_ID" envDefault:"kattenbak-reconciler"`
	ReconcileWorkers int      `env:"RECONCILE_WORKERS" envDefault:"4" validate:"gte=1,lte=64"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"log" validate:"oneof=log resend smtp"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"Kattenbak <noreply@localhost>"`
	ShopName      string `env:"SHOP_NAME" envDefault:"Kattenbak"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	SMTPHost      string `env:"SMTP_HOST" validate:"required_if=EmailProvider smtp"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`

	SentryDSN       string `env:"SENTRY_DSN"`
	CatalogSeedFile string `env:"CATALOG_SEED_FILE"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WebhookURL is the URL Mollie posts payment updates to.
func (c *Config) WebhookURL() string {
	if strings.TrimSpace(c.MollieWebhookURL) != "" {
		return c.MollieWebhookURL
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return ""
	}
	return strings.TrimRight(c.BaseURL, "/") + "/webhooks/mollie"
}

// ReturnURL is where Mollie sends the customer after checkout. The order id
// is appended as a query parameter.
func (c *Config) ReturnURL() string {
	if strings.TrimSpace(c.CheckoutReturnURL) != "" {
		return c.CheckoutReturnURL
	}
	if len(c.AllowedOrigins) > 0 {
		return strings.TrimRight(c.AllowedOrigins[0], "/") + "/checkout/complete"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/checkout/complete"
}

// StorefrontURL is the public shop address used in customer emails.
func (c *Config) StorefrontURL() string {
	if strings.TrimSpace(c.ShopURL) != "" {
		return strings.TrimRight(c.ShopURL, "/")
	}
	if len(c.AllowedOrigins) > 0 {
		return strings.TrimRight(c.AllowedOrigins[0], "/")
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.QueueProvider == "kafka" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when QUEUE_PROVIDER is kafka")
	}

	if c.Environment == "production" {
		if strings.HasPrefix(c.MollieAPIKey, "test_") {
			return fmt.Errorf("MOLLIE_API_KEY must be a live key in production")
		}
		if c.WebhookURL() == "" {
			return fmt.Errorf("BASE_URL or MOLLIE_WEBHOOK_URL is required in production")
		}
	}

	for _, origin := range c.AllowedOrigins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("ALLOWED_ORIGINS entry %q must be an absolute origin", origin)
		}
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
