package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/User-Emin/kattenbak-sub003/internal/cache"
	"github.com/User-Emin/kattenbak-sub003/internal/catalog"
	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
)

const (
	paymentMethodsTTL   = time.Hour
	maxCheckoutLines    = 50
	maxCheckoutQuantity = 99
)

type orderPricer interface {
	UnitPriceCents(product *models.Product, variant *models.ProductVariant) (int, error)
	ComputeSubtotal(items []models.OrderItem) int
	GetShippingCents(subtotalCents int) int
}

var _ orderPricer = (*catalog.Pricer)(nil)

type CheckoutConfig struct {
	// RedirectURL is where the provider sends the customer after paying.
	// The order id is appended as the "order" query parameter.
	RedirectURL string
	WebhookURL  string
	Currency    string
}

// CheckoutService turns a storefront cart into a pending order with a
// provider payment.
type CheckoutService struct {
	orders   OrderStore
	products CatalogStore
	gateway  payments.Gateway
	pricer   orderPricer
	cache    cache.Provider
	cfg      CheckoutConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewCheckoutService(orders OrderStore, products CatalogStore, gateway payments.Gateway, pricer orderPricer, cacheProvider cache.Provider, cfg CheckoutConfig, logger *slog.Logger) *CheckoutService {
	if pricer == nil {
		pricer = catalog.NewPricer(catalog.DefaultShipping)
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &CheckoutService{
		orders:   orders,
		products: products,
		gateway:  gateway,
		pricer:   pricer,
		cache:    cacheProvider,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CheckoutItem struct {
	ProductID string
	VariantID string
	Quantity  int
}

type CheckoutInput struct {
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	ShippingAddress models.Address
	Items           []CheckoutItem
	Method          string
}

type CheckoutResult struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CheckoutURL string `json:"checkoutUrl"`
	TotalCents  int    `json:"totalCents"`
}

// OrderStatusView is the public subset of an order shown on the storefront
// confirmation page.
type OrderStatusView struct {
	OrderID        string               `json:"orderId"`
	OrderNumber    string               `json:"orderNumber"`
	Status         models.OrderStatus   `json:"status"`
	PaymentStatus  models.PaymentStatus `json:"paymentStatus"`
	TotalCents     int                  `json:"totalCents"`
	TrackingNumber string               `json:"trackingNumber,omitempty"`
	TrackingURL    string               `json:"trackingUrl,omitempty"`
	Carrier        string               `json:"carrier,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// Checkout prices the cart against the catalog, stores a pending order and
// opens a provider payment for it. When the provider is unavailable the
// order stays pending and ErrUnavailable is returned.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.checkout",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Checkout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)

	if err := validateCheckoutInput(input); err != nil {
		return nil, err
	}

	items, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	subtotal := s.pricer.ComputeSubtotal(items)
	shipping := s.pricer.GetShippingCents(subtotal)

	now := s.now()
	order := &models.Order{
		OrderNumber:     NewOrderNumber(now),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		ShippingAddress: normalizeAddress(input.ShippingAddress),
		Items:           items,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TotalCents:      subtotal + shipping,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, storeError(err, "create order")
	}
	logger = logger.With("order_id", order.ID, "order_number", order.OrderNumber)

	payment, err := s.gateway.CreatePayment(ctx, payments.CreatePaymentInput{
		AmountCents: order.TotalCents,
		Currency:    s.cfg.Currency,
		Description: "Order " + order.OrderNumber,
		RedirectURL: s.redirectURL(order.ID),
		WebhookURL:  s.cfg.WebhookURL,
		Method:      strings.TrimSpace(input.Method),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	})
	if err != nil {
		logger.Error("failed to create payment; order left pending", "error", err)
		return nil, gatewayError(err, "create payment")
	}

	if err := s.orders.AttachPayment(ctx, &db.Payment{
		OrderID:           order.ID,
		ProviderPaymentID: payment.ID,
		ProviderStatus:    payment.Status,
		Method:            payment.Method,
		AmountCents:       payment.AmountCents,
		CheckoutURL:       payment.CheckoutURL,
	}); err != nil {
		return nil, storeError(err, "attach payment")
	}

	logger.Info("checkout created", "payment_id", payment.ID, "total_cents", order.TotalCents)
	return &CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CheckoutURL: payment.CheckoutURL,
		TotalCents:  order.TotalCents,
	}, nil
}

func (s *CheckoutService) priceItems(ctx context.Context, lines []CheckoutItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		product, err := s.products.GetProduct(ctx, strings.TrimSpace(line.ProductID))
		if err != nil {
			if err = storeError(err, "load product"); isNotFound(err) {
				return nil, validationError("item %d: unknown product %q", i+1, line.ProductID)
			}
			return nil, err
		}
		if !product.Active {
			return nil, validationError("item %d: product %q is not available", i+1, product.Name)
		}

		name := product.Name
		sku := product.SKU
		stock := product.Stock
		var variant *models.ProductVariant
		if variantID := strings.TrimSpace(line.VariantID); variantID != "" {
			v, ok := product.Variant(variantID)
			if !ok {
				return nil, validationError("item %d: unknown variant %q", i+1, line.VariantID)
			}
			variant = &v
			name = product.Name + " - " + v.Name
			sku = v.SKU
			stock = v.Stock
		} else if len(product.Variants) > 0 {
			return nil, validationError("item %d: product %q requires a variant", i+1, product.Name)
		}

		unitPrice, err := s.pricer.UnitPriceCents(product, variant)
		if err != nil {
			return nil, validationError("item %d: %v", i+1, err)
		}
		if stock < line.Quantity {
			return nil, validationError("item %d: only %d of %q in stock", i+1, max(stock, 0), name)
		}

		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			VariantID:      strings.TrimSpace(line.VariantID),
			ProductName:    name,
			SKU:            sku,
			Quantity:       line.Quantity,
			UnitPriceCents: unitPrice,
		})
	}
	return items, nil
}

func (s *CheckoutService) redirectURL(orderID string) string {
	u, err := url.Parse(s.cfg.RedirectURL)
	if err != nil || s.cfg.RedirectURL == "" {
		return s.cfg.RedirectURL
	}
	q := u.Query()
	q.Set("order", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

// PaymentMethods lists the provider's enabled methods, cached for an hour.
// Cache failures fall through to the provider.
func (s *CheckoutService) PaymentMethods(ctx context.Context) ([]payments.Method, error) {
	logger := s.loggerFromContext(ctx)

	if s.cache != nil {
		var cached []payments.Method
		hit, err := cache.GetJSON(ctx, s.cache, cache.PaymentMethodsKey(), &cached)
		if err != nil {
			logger.Warn("payment methods cache read failed", "error", err)
		}
		if hit {
			return cached, nil
		}
	}

	methods, err := s.gateway.ListMethods(ctx)
	if err != nil {
		return nil, gatewayError(err, "list payment methods")
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, cache.PaymentMethodsKey(), methods, paymentMethodsTTL); err != nil {
			logger.Warn("payment methods cache write failed", "error", err)
		}
	}
	return methods, nil
}

// OrderStatus is the storefront lookup after the payment redirect. The
// email must match the order; a mismatch reads as not found.
func (s *CheckoutService) OrderStatus(ctx context.Context, orderID, email string) (*OrderStatusView, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || strings.TrimSpace(email) == "" {
		return nil, validationError("order id and email are required")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "load order")
	}
	if !strings.EqualFold(strings.TrimSpace(order.CustomerEmail), strings.TrimSpace(email)) {
		return nil, storeError(db.ErrNotFound, "load order")
	}
	return &OrderStatusView{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		TotalCents:     order.TotalCents,
		TrackingNumber: order.TrackingNumber,
		TrackingURL:    order.TrackingURL,
		Carrier:        order.Carrier,
		CreatedAt:      order.CreatedAt,
	}, nil
}

// NewOrderNumber returns a customer-facing number like ORD-20250301-3F9A1C.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

func validateCheckoutInput(input CheckoutInput) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(input.CustomerEmail)); err != nil {
		return validationError("a valid email address is required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return validationError("customer name is required")
	}
	addr := input.ShippingAddress
	if strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.HouseNumber) == "" ||
		strings.TrimSpace(addr.PostalCode) == "" || strings.TrimSpace(addr.City) == "" {
		return validationError("street, house number, postal code and city are required")
	}
	if len(input.Items) == 0 {
		return validationError("at least one item is required")
	}
	if len(input.Items) > maxCheckoutLines {
		return validationError("at most %d items per order", maxCheckoutLines)
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return validationError("item %d: product id is required", i+1)
		}
		if item.Quantity < 1 || item.Quantity > maxCheckoutQuantity {
			return validationError("item %d: quantity must be between 1 and %d", i+1, maxCheckoutQuantity)
		}
	}
	return nil
}

func normalizeAddress(addr models.Address) models.Address {
	country := strings.ToUpper(strings.TrimSpace(addr.Country))
	if country == "" {
		country = "NL"
	}
	return models.Address{
		Street:      strings.TrimSpace(addr.Street),
		HouseNumber: strings.TrimSpace(addr.HouseNumber),
		PostalCode:  strings.ToUpper(strings.TrimSpace(addr.PostalCode)),
		City:        strings.TrimSpace(addr.City),
		Country:     country,
	}
}
