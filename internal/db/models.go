package db

import (
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

type Order = models.Order
type OrderItem = models.OrderItem
type Payment = models.Payment
type Return = models.Return

type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	CustomerEmail string
	Limit         int
	Offset        int
}

// OrderUpdate carries the admin-editable order fields. Nil fields are left
// untouched.
type OrderUpdate struct {
	Status         *models.OrderStatus
	PaymentStatus  *models.PaymentStatus
	TrackingNumber *string
	TrackingURL    *string
	Carrier        *string
}

func (u OrderUpdate) Empty() bool {
	return u.Status == nil && u.PaymentStatus == nil && u.TrackingNumber == nil && u.TrackingURL == nil && u.Carrier == nil
}

// PaymentTransition describes a payment status write: the status the order
// held before and the one it holds now. MovedToProcessing is set when the
// same write also took a paid order out of pending.
type PaymentTransition struct {
	OrderID           string
	Previous          models.PaymentStatus
	Current           models.PaymentStatus
	MovedToProcessing bool
}

// Changed reports whether the write moved the order to a different status.
func (t PaymentTransition) Changed() bool {
	return t.Previous != t.Current
}

type ReturnFilter struct {
	Status  models.ReturnStatus
	OrderID string
	Limit   int
	Offset  int
}

// ReturnStatusUpdate is applied by ReturnStore.UpdateStatus. ApprovedAt and
// RefundedAt only fill empty columns; the first stamp wins.
type ReturnStatusUpdate struct {
	Status            models.ReturnStatus
	AdminNotes        *string
	RefundAmountCents *int
	ApprovedAt        *time.Time
	RefundedAt        *time.Time
	UpdatedAt         time.Time
}

type ProductFilter struct {
	CategorySlug string
	ActiveOnly   bool
}

type CatalogSeed struct {
	Categories []models.Category
	Products   []SeedProduct
}

type SeedProduct struct {
	Product      models.Product
	CategorySlug string
}
