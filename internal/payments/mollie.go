package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VictorAvelar/mollie-api-go/v4/mollie"

	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/observability"
)

const (
	DefaultMollieBaseURL = "https://api.mollie.com/"
	defaultCurrency      = "EUR"
)

type MollieConfig struct {
	APIKey string
	// BaseURL is the API root; the SDK appends the v2 paths.
	BaseURL string
	Timeout time.Duration
}

// MollieClient adapts the Mollie SDK to Gateway. It does not retry; the
// provider redelivers webhooks until they are acknowledged.
type MollieClient struct {
	client *mollie.Client
	logger *slog.Logger
}

func NewMollieClient(cfg MollieConfig, logger *slog.Logger) (*MollieClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mollie api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultMollieBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mollie base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}

	client, err := mollie.NewClient(observability.NewHTTPClient(timeout), mollie.NewAPIConfig(false))
	if err != nil {
		return nil, fmt.Errorf("failed to create mollie client: %w", err)
	}
	if err := client.WithAuthenticationValue(cfg.APIKey); err != nil {
		return nil, fmt.Errorf("failed to set mollie api key: %w", err)
	}
	client.BaseURL = parsed

	return &MollieClient{client: client, logger: logger}, nil
}

func (c *MollieClient) CreatePayment(ctx context.Context, input CreatePaymentInput) (payment *Payment, err error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if strings.TrimSpace(input.RedirectURL) == "" {
		return nil, fmt.Errorf("redirect url is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	defer observeGateway("create_payment", time.Now(), &err)

	request := mollie.CreatePayment{
		Amount:      &mollie.Amount{Currency: currency, Value: FormatAmount(input.AmountCents)},
		Description: input.Description,
		RedirectURL: input.RedirectURL,
		WebhookURL:  input.WebhookURL,
		Metadata: map[string]string{
			"orderId":     input.OrderID,
			"orderNumber": input.OrderNumber,
		},
	}
	if input.Method != "" {
		request.Method = []mollie.PaymentMethod{mollie.PaymentMethod(input.Method)}
	}

	res, created, err := c.client.Payments.Create(ctx, request, nil)
	if err != nil {
		return nil, c.mapError("create payment", res, err)
	}
	return toPayment(created)
}

func (c *MollieClient) GetPayment(ctx context.Context, id string) (payment *Payment, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	defer observeGateway("get_payment", time.Now(), &err)

	res, found, err := c.client.Payments.Get(ctx, id, nil)
	if err != nil {
		return nil, c.mapError("get payment "+id, res, err)
	}
	return toPayment(found)
}

func (c *MollieClient) ListMethods(ctx context.Context) (methods []Method, err error) {
	defer observeGateway("list_methods", time.Now(), &err)

	res, list, err := c.client.PaymentMethods.List(ctx, nil)
	if err != nil {
		return nil, c.mapError("list methods", res, err)
	}
	if list == nil {
		return []Method{}, nil
	}

	methods = make([]Method, 0, len(list.Embedded.Methods))
	for _, m := range list.Embedded.Methods {
		if m == nil {
			continue
		}
		method := Method{ID: m.ID, Description: m.Description}
		if m.Image != nil {
			method.ImageURL = m.Image.Svg
		}
		methods = append(methods, method)
	}
	return methods, nil
}

func observeGateway(operation string, start time.Time, err *error) {
	observability.GatewayRequestDuration.
		WithLabelValues(operation, observability.Outcome(*err)).
		Observe(time.Since(start).Seconds())
}

// mapError sorts SDK failures into the gateway errors. No response means the
// provider was never reached.
func (c *MollieClient) mapError(operation string, res *mollie.Response, err error) error {
	if res == nil || res.Response == nil {
		return fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, operation, err)
	}
	switch status := res.StatusCode; {
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: mollie returned %d", ErrGatewayUnavailable, operation, status)
	case status == http.StatusNotFound:
		return ErrPaymentNotFound
	case status >= http.StatusBadRequest:
		c.logger.Warn("mollie rejected request", "operation", operation, "status", status, "error", err)
		return fmt.Errorf("mollie rejected %s (%d): %w", operation, status, err)
	default:
		return fmt.Errorf("failed to decode mollie response for %s: %w", operation, err)
	}
}

func toPayment(p *mollie.Payment) (*Payment, error) {
	if p == nil {
		return nil, fmt.Errorf("mollie returned an empty payment")
	}
	out := &Payment{
		ID:     p.ID,
		Status: string(p.Status),
		Method: string(p.Method),
	}
	if p.Amount != nil {
		cents, err := ParseAmount(p.Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		out.AmountCents = cents
		out.Currency = p.Amount.Currency
	}
	if metadata, ok := p.Metadata.(map[string]any); ok {
		out.OrderID, _ = metadata["orderId"].(string)
	}
	if p.Links.Checkout != nil {
		out.CheckoutURL = p.Links.Checkout.Href
	}
	return out, nil
}

// FormatAmount renders cents the way the provider expects, e.g. 1995 -> "19.95".
func FormatAmount(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseAmount is the inverse of FormatAmount. An empty value is zero; only a
// leading minus is accepted as a sign.
func ParseAmount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	digits, negative := strings.CutPrefix(value, "-")

	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" || len(frac) > 2 || !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	cents, _ := strconv.Atoi(frac)
	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsUnavailable reports whether err means the provider could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}
