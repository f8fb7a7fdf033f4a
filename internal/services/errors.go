package services

import (
	"errors"
	"fmt"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrNotEligible = errors.New("order is not eligible")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("service temporarily unavailable")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError translates store sentinels into service sentinels and wraps
// everything else with context.
func storeError(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, action)
	case errors.Is(err, db.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, action)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

func gatewayError(err error, action string) error {
	switch {
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, action, err)
	case errors.Is(err, payments.ErrPaymentNotFound):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, action, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
