package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// OrderService backs the admin order endpoints.
type OrderService struct {
	orders      OrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewOrderService(orders OrderStore, emailSender OrderEmailSender, logger *slog.Logger) *OrderService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &OrderService{
		orders:      orders,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type ListOrdersInput struct {
	Status        string
	PaymentStatus string
	Limit         int
	Offset        int
}

// UpdateOrderInput holds an admin edit. Nil fields are left untouched.
type UpdateOrderInput struct {
	Status         *string
	PaymentStatus  *string
	TrackingNumber *string
	Carrier        *string
}

func (s *OrderService) List(ctx context.Context, input ListOrdersInput) ([]*models.Order, error) {
	filter := db.OrderFilter{Limit: input.Limit, Offset: input.Offset}
	if status := strings.ToLower(strings.TrimSpace(input.Status)); status != "" {
		filter.Status = models.OrderStatus(status)
		if !filter.Status.Valid() {
			return nil, validationError("unknown order status %q", input.Status)
		}
	}
	if status := strings.ToLower(strings.TrimSpace(input.PaymentStatus)); status != "" {
		filter.PaymentStatus = models.PaymentStatus(status)
		if !filter.PaymentStatus.Valid() {
			return nil, validationError("unknown payment status %q", input.PaymentStatus)
		}
	}
	if input.Limit < 0 || input.Offset < 0 {
		return nil, validationError("limit and offset must not be negative")
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list orders")
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("order id is required")
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "load order")
	}
	return order, nil
}

// Update applies an admin edit. A tracking URL is derived for known
// carriers. Moving the order to shipped or delivered emails the customer;
// email failures are logged only.
func (s *OrderService) Update(ctx context.Context, id string, input UpdateOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.update",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Update"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx).With("order_id", id)

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update, err := buildOrderUpdate(current, input)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, validationError("no fields to update")
	}

	order, err := s.orders.Update(ctx, current.ID, update)
	if err != nil {
		return nil, storeError(err, "update order")
	}

	if order.Status != current.Status {
		logger.Info("order status changed", "from", current.Status, "to", order.Status)
		switch order.Status {
		case models.StatusShipped:
			if err := s.emailSender.SendOrderShipped(ctx, order); err != nil {
				logger.Error("failed to send shipping email", "error", err)
			}
		case models.StatusDelivered:
			if err := s.emailSender.SendOrderDelivered(ctx, order); err != nil {
				logger.Error("failed to send delivery email", "error", err)
			}
		}
	}
	if order.PaymentStatus != current.PaymentStatus {
		logger.Warn("payment status overridden by admin", "from", current.PaymentStatus, "to", order.PaymentStatus)
	}
	return order, nil
}

func buildOrderUpdate(current *models.Order, input UpdateOrderInput) (db.OrderUpdate, error) {
	var update db.OrderUpdate

	if input.Status != nil {
		status := models.OrderStatus(strings.ToLower(strings.TrimSpace(*input.Status)))
		if !status.Valid() {
			return update, validationError("unknown order status %q", *input.Status)
		}
		update.Status = &status
	}
	if input.PaymentStatus != nil {
		status := models.PaymentStatus(strings.ToLower(strings.TrimSpace(*input.PaymentStatus)))
		if !status.Valid() {
			return update, validationError("unknown payment status %q", *input.PaymentStatus)
		}
		update.PaymentStatus = &status
	}

	if input.TrackingNumber == nil && input.Carrier == nil {
		return update, nil
	}

	trackingNumber := current.TrackingNumber
	if input.TrackingNumber != nil {
		trackingNumber = strings.TrimSpace(*input.TrackingNumber)
	}
	carrier := current.Carrier
	if input.Carrier != nil {
		carrier = NormalizeCarrierName(*input.Carrier)
	}
	if trackingNumber != "" && carrier == "" {
		return update, fmt.Errorf("%w: carrier is required with a tracking number", ErrValidation)
	}

	trackingURL := BuildTrackingURL(carrier, trackingNumber, current.ShippingAddress.PostalCode, current.ShippingAddress.Country)
	update.TrackingNumber = &trackingNumber
	update.Carrier = &carrier
	update.TrackingURL = &trackingURL
	return update, nil
}
