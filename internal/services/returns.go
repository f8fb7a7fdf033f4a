package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

const maxReturnReasonLength = 2000

// ReturnService implements the customer return request and the admin
// return workflow.
type ReturnService struct {
	returns     ReturnStore
	orders      OrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
	now         func() time.Time
}

func NewReturnService(returns ReturnStore, orders OrderStore, emailSender OrderEmailSender, logger *slog.Logger) *ReturnService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &ReturnService{
		returns:     returns,
		orders:      orders,
		emailSender: emailSender,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReturnService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CreateReturnInput struct {
	OrderID string
	Email   string
	Reason  string
	Items   []models.ReturnItem
}

// UpdateReturnInput is an admin status change. Any status in the vocabulary
// is accepted regardless of the current one.
type UpdateReturnInput struct {
	Status            string
	AdminNotes        *string
	RefundAmountCents *int
}

type ListReturnsInput struct {
	Status  string
	OrderID string
	Limit   int
	Offset  int
}

// Create opens a return in REQUESTED for an eligible order. The email must
// match the order's customer.
func (s *ReturnService) Create(ctx context.Context, input CreateReturnInput) (*models.Return, error) {
	span := sentry.StartSpan(
		ctx,
		"service.returns.create",
		sentry.WithOpName("service.returns"),
		sentry.WithDescription("Create"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	orderID := strings.TrimSpace(input.OrderID)
	reason := strings.TrimSpace(input.Reason)
	switch {
	case orderID == "":
		return nil, validationError("order id is required")
	case strings.TrimSpace(input.Email) == "":
		return nil, validationError("email is required")
	case reason == "":
		return nil, validationError("reason is required")
	case len(reason) > maxReturnReasonLength:
		return nil, validationError("reason must be at most %d characters", maxReturnReasonLength)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "load order")
	}
	// A mismatched email reads as an unknown order.
	if !strings.EqualFold(strings.TrimSpace(order.CustomerEmail), strings.TrimSpace(input.Email)) {
		return nil, storeError(db.ErrNotFound, "load order")
	}
	if !order.EligibleForReturn() {
		return nil, ErrNotEligible
	}

	returned, err := s.returnedQuantities(ctx, order.ID)
	if err != nil {
		return nil, storeError(err, "load earlier returns")
	}
	items, refund, err := returnItems(order, input.Items, returned)
	if err != nil {
		return nil, err
	}

	open, err := s.returns.ExistsOpenForOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError(err, "check open returns")
	}
	if open {
		return nil, fmt.Errorf("%w: order already has an open return", ErrConflict)
	}

	ret := &models.Return{
		OrderID:           order.ID,
		Reason:            reason,
		Items:             items,
		Status:            models.ReturnRequested,
		RefundAmountCents: refund,
		CreatedAt:         s.now(),
	}
	// The store enforces one open return per order; a concurrent request
	// that passed the check above lands here.
	if err := s.returns.Create(ctx, ret); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, fmt.Errorf("%w: order already has an open return", ErrConflict)
		}
		return nil, storeError(err, "create return")
	}

	s.loggerFromContext(ctx).Info("return requested", "return_id", ret.ID, "order_id", order.ID, "items", len(items))
	return ret, nil
}

const returnsPageSize = 100

// returnedQuantities sums, per order item, the quantities claimed by earlier
// returns of the order. Rejected returns give their items back.
func (s *ReturnService) returnedQuantities(ctx context.Context, orderID string) (map[string]int, error) {
	returned := make(map[string]int)
	for offset := 0; ; offset += returnsPageSize {
		page, err := s.returns.List(ctx, db.ReturnFilter{OrderID: orderID, Limit: returnsPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, ret := range page {
			if ret.Status == models.ReturnRejected {
				continue
			}
			for _, item := range ret.Items {
				returned[item.OrderItemID] += item.Quantity
			}
		}
		if len(page) < returnsPageSize {
			return returned, nil
		}
	}
}

// returnItems validates the requested items against the order and what
// earlier returns already claimed. An empty request returns everything that
// is still returnable.
func returnItems(order *models.Order, requested []models.ReturnItem, returned map[string]int) ([]models.ReturnItem, int, error) {
	if len(requested) == 0 {
		items := make([]models.ReturnItem, 0, len(order.Items))
		refund := 0
		for _, item := range order.Items {
			remaining := item.Quantity - returned[item.ID]
			if remaining <= 0 {
				continue
			}
			items = append(items, models.ReturnItem{OrderItemID: item.ID, Quantity: remaining})
			refund += item.UnitPriceCents * remaining
		}
		if len(items) == 0 {
			return nil, 0, fmt.Errorf("%w: every item of the order has already been returned", ErrConflict)
		}
		return items, refund, nil
	}

	seen := make(map[string]struct{}, len(requested))
	items := make([]models.ReturnItem, 0, len(requested))
	refund := 0
	for _, req := range requested {
		id := strings.TrimSpace(req.OrderItemID)
		item, ok := order.Item(id)
		if !ok {
			return nil, 0, validationError("item %q is not part of the order", req.OrderItemID)
		}
		if _, dup := seen[id]; dup {
			return nil, 0, validationError("item %q is listed twice", id)
		}
		seen[id] = struct{}{}
		remaining := item.Quantity - returned[id]
		if remaining <= 0 {
			return nil, 0, fmt.Errorf("%w: item %q has already been returned", ErrConflict, id)
		}
		if req.Quantity < 1 || req.Quantity > remaining {
			return nil, 0, validationError("quantity for item %q must be between 1 and %d", id, remaining)
		}
		items = append(items, models.ReturnItem{OrderItemID: id, Quantity: req.Quantity})
		refund += item.UnitPriceCents * req.Quantity
	}
	return items, refund, nil
}

func (s *ReturnService) Get(ctx context.Context, id string) (*models.Return, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("return id is required")
	}
	ret, err := s.returns.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "load return")
	}
	return ret, nil
}

func (s *ReturnService) List(ctx context.Context, input ListReturnsInput) ([]*models.Return, error) {
	filter := db.ReturnFilter{
		OrderID: strings.TrimSpace(input.OrderID),
		Limit:   input.Limit,
		Offset:  input.Offset,
	}
	if strings.TrimSpace(input.Status) != "" {
		status, ok := models.ParseReturnStatus(input.Status)
		if !ok {
			return nil, validationError("unknown return status %q", input.Status)
		}
		filter.Status = status
	}
	if input.Limit < 0 || input.Offset < 0 {
		return nil, validationError("limit and offset must not be negative")
	}

	returns, err := s.returns.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list returns")
	}
	return returns, nil
}

// UpdateStatus sets the return status. approvedAt is stamped when the
// status becomes APPROVED and refundedAt when it becomes REFUND_PROCESSED;
// the first stamp is kept on repeats.
func (s *ReturnService) UpdateStatus(ctx context.Context, id string, input UpdateReturnInput) (*models.Return, error) {
	span := sentry.StartSpan(
		ctx,
		"service.returns.update_status",
		sentry.WithOpName("service.returns"),
		sentry.WithDescription("UpdateStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("return id is required")
	}
	status, ok := models.ParseReturnStatus(input.Status)
	if !ok {
		return nil, validationError("unknown return status %q", input.Status)
	}
	if input.RefundAmountCents != nil && *input.RefundAmountCents < 0 {
		return nil, validationError("refund amount must not be negative")
	}

	now := s.now()
	update := db.ReturnStatusUpdate{
		Status:            status,
		AdminNotes:        input.AdminNotes,
		RefundAmountCents: input.RefundAmountCents,
		UpdatedAt:         now,
	}
	switch status {
	case models.ReturnApproved:
		update.ApprovedAt = &now
	case models.ReturnRefundProcessed:
		update.RefundedAt = &now
	}

	ret, err := s.returns.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, storeError(err, "update return")
	}

	logger := s.loggerFromContext(ctx).With("return_id", ret.ID, "order_id", ret.OrderID)
	logger.Info("return status updated", "status", ret.Status)

	order, err := s.orders.GetByID(ctx, ret.OrderID)
	if err != nil {
		logger.Warn("failed to load order for return email", "error", err)
		return ret, nil
	}
	if err := s.emailSender.SendReturnUpdate(ctx, ret, order); err != nil {
		logger.Error("failed to send return update email", "error", err)
	}
	return ret, nil
}
