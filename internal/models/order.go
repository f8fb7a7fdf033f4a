package models

import (
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is part of the order status vocabulary.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId,omitempty"`
	ProductName    string `json:"productName"`
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unitPriceCents"`
}

func (i OrderItem) TotalCents() int {
	return i.UnitPriceCents * i.Quantity
}

// Payment is the last known provider state of an order's payment. Only the
// most recent payment attempt is kept.
type Payment struct {
	OrderID           string    `json:"orderId"`
	ProviderPaymentID string    `json:"providerPaymentId"`
	ProviderStatus    string    `json:"providerStatus"`
	Method            string    `json:"method,omitempty"`
	AmountCents       int       `json:"amountCents"`
	CheckoutURL       string    `json:"checkoutUrl,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"orderNumber"`
	CustomerEmail   string        `json:"customerEmail"`
	CustomerName    string        `json:"customerName"`
	CustomerPhone   string        `json:"customerPhone,omitempty"`
	ShippingAddress Address       `json:"shippingAddress"`
	Items           []OrderItem   `json:"items"`
	SubtotalCents   int           `json:"subtotalCents"`
	ShippingCents   int           `json:"shippingCents"`
	TotalCents      int           `json:"totalCents"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	TrackingNumber  string        `json:"trackingNumber,omitempty"`
	TrackingURL     string        `json:"trackingUrl,omitempty"`
	Carrier         string        `json:"carrier,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	Payment         *Payment      `json:"payment,omitempty"`
}

// EligibleForReturn reports whether a customer may open a return for the order.
func (o *Order) EligibleForReturn() bool {
	if o == nil {
		return false
	}
	if o.PaymentStatus != PaymentPaid {
		return false
	}
	return o.Status == StatusShipped || o.Status == StatusDelivered
}

// Item returns the order item with the given id.
func (o *Order) Item(itemID string) (OrderItem, bool) {
	if o == nil {
		return OrderItem{}, false
	}
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return OrderItem{}, false
}
