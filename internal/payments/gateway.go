// Package payments talks to the payment provider and maps its payment
// statuses onto the order payment vocabulary.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrGatewayUnavailable covers network failures, timeouts and 5xx
	// responses from the provider.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentNotFound    = errors.New("payment not found at provider")
)

type Gateway interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListMethods(ctx context.Context) ([]Method, error)
}

type CreatePaymentInput struct {
	AmountCents int
	Currency    string
	Description string
	RedirectURL string
	WebhookURL  string
	Method      string
	OrderID     string
	OrderNumber string
}

// Payment is the provider's view of a payment. Status is the raw provider
// status; use MapStatus to translate it.
type Payment struct {
	ID          string
	Status      string
	Method      string
	AmountCents int
	Currency    string
	CheckoutURL string
	OrderID     string
	CreatedAt   time.Time
	PaidAt      *time.Time
}

type Method struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}
