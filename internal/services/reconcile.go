package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/observability"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
)

// ReconciliationService copies the provider's view of a payment into the
// order store. It holds no state of its own.
type ReconciliationService struct {
	orders      OrderStore
	gateway     payments.Gateway
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewReconciliationService(orders OrderStore, gateway payments.Gateway, emailSender OrderEmailSender, logger *slog.Logger) *ReconciliationService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &ReconciliationService{
		orders:      orders,
		gateway:     gateway,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *ReconciliationService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ReconcileResult reports what a reconciliation run did.
type ReconcileResult struct {
	OrderID   string
	Previous  models.PaymentStatus
	Current   models.PaymentStatus
	Confirmed bool
}

// Reconcile fetches the payment from the provider and writes the mapped
// status to the owning order. Applying the same provider status twice
// rewrites the same value; the confirmation goes out once, with the move
// from pending to processing.
func (s *ReconciliationService) Reconcile(ctx context.Context, providerPaymentID string) (result ReconcileResult, err error) {
	span := sentry.StartSpan(
		ctx,
		"service.reconcile.reconcile",
		sentry.WithOpName("service.reconcile"),
		sentry.WithDescription("Reconcile"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	providerPaymentID = strings.TrimSpace(providerPaymentID)
	logger := s.loggerFromContext(ctx).With("payment_id", providerPaymentID)

	defer func() {
		observability.ReconcileProcessed.WithLabelValues(reconcileOutcome(err)).Inc()
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
		}
	}()

	if providerPaymentID == "" {
		return ReconcileResult{}, validationError("payment id is required")
	}

	payment, err := s.gateway.GetPayment(ctx, providerPaymentID)
	if err != nil {
		return ReconcileResult{}, gatewayError(err, "fetch payment")
	}
	status := payments.MapStatus(payment.Status)

	transition, err := s.orders.SetPaymentStatus(ctx, providerPaymentID, payment.Status, status)
	if errors.Is(err, db.ErrNotFound) {
		transition, err = s.adoptPayment(ctx, payment, status)
	}
	if err != nil {
		return ReconcileResult{}, storeError(err, "write payment status")
	}

	result = ReconcileResult{
		OrderID:  transition.OrderID,
		Previous: transition.Previous,
		Current:  transition.Current,
	}
	logger = logger.With("order_id", transition.OrderID)

	if transition.Changed() {
		observability.PaymentTransitions.WithLabelValues(string(transition.Previous), string(transition.Current)).Inc()
		logger.Info("payment status updated", "from", transition.Previous, "to", transition.Current, "provider_status", payment.Status)
	}
	if transition.Current != models.PaymentPaid {
		return result, nil
	}

	// The run that takes the order out of pending owns the confirmation. A
	// repeated paid delivery retries the move when an earlier run failed
	// between the payment write and this step.
	moved := transition.MovedToProcessing
	if !moved {
		moved, err = s.orders.MarkProcessing(ctx, transition.OrderID)
		if err != nil {
			return result, storeError(err, "mark order processing")
		}
	}
	if !moved {
		if transition.Changed() {
			logger.Info("paid order was not pending; status left as is")
		} else {
			logger.Debug("payment status unchanged", "status", status)
		}
		return result, nil
	}

	order, err := s.orders.GetByID(ctx, transition.OrderID)
	if err != nil {
		return result, storeError(err, "load paid order")
	}
	if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
		logger.Error("failed to send order confirmation", "error", err)
		return result, nil
	}
	result.Confirmed = true
	return result, nil
}

// adoptPayment links a provider payment to its order through the order id
// stored in the payment metadata. It covers payments whose local record was
// lost, e.g. when checkout failed after the provider call.
func (s *ReconciliationService) adoptPayment(ctx context.Context, payment *payments.Payment, status models.PaymentStatus) (db.PaymentTransition, error) {
	if strings.TrimSpace(payment.OrderID) == "" {
		return db.PaymentTransition{}, fmt.Errorf("payment %s has no order reference: %w", payment.ID, db.ErrNotFound)
	}
	if _, err := s.orders.GetByID(ctx, payment.OrderID); err != nil {
		return db.PaymentTransition{}, err
	}
	if err := s.orders.AttachPayment(ctx, &db.Payment{
		OrderID:           payment.OrderID,
		ProviderPaymentID: payment.ID,
		ProviderStatus:    payment.Status,
		Method:            payment.Method,
		AmountCents:       payment.AmountCents,
		CheckoutURL:       payment.CheckoutURL,
	}); err != nil {
		return db.PaymentTransition{}, err
	}
	s.loggerFromContext(ctx).Warn("attached unknown payment to order from metadata", "payment_id", payment.ID, "order_id", payment.OrderID)
	return s.orders.SetPaymentStatus(ctx, payment.ID, payment.Status, status)
}

// HandleJob is the queue handler. Errors are reported and returned so the
// queue can log them; they never reach the webhook caller.
func (s *ReconciliationService) HandleJob(ctx context.Context, job queue.Job) error {
	_, err := s.Reconcile(ctx, job.PaymentID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		s.loggerFromContext(ctx).Warn("reconciliation skipped", "payment_id", job.PaymentID, "error", err)
		return err
	}
	observability.CaptureError(ctx, err, map[string]string{
		"component":  "reconcile",
		"payment_id": job.PaymentID,
	})
	return err
}

func reconcileOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "gateway_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
