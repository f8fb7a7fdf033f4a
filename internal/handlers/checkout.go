package handlers

import (
	"net/http"
	"strings"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

type addressRequest struct {
	Street      string `json:"street" validate:"required,max=200"`
	HouseNumber string `json:"houseNumber" validate:"required,max=20"`
	PostalCode  string `json:"postalCode" validate:"required,max=16"`
	City        string `json:"city" validate:"required,max=100"`
	Country     string `json:"country" validate:"omitempty,len=2"`
}

type checkoutItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
}

type checkoutRequest struct {
	CustomerEmail   string                `json:"customerEmail" validate:"required,email,max=254"`
	CustomerName    string                `json:"customerName" validate:"required,max=200"`
	CustomerPhone   string                `json:"customerPhone" validate:"max=40"`
	ShippingAddress addressRequest        `json:"shippingAddress"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	Method          string                `json:"method" validate:"max=32"`
}

// Checkout creates a pending order and returns the provider checkout URL.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CheckoutItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.checkout.Checkout(r.Context(), services.CheckoutInput{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ShippingAddress: models.Address{
			Street:      req.ShippingAddress.Street,
			HouseNumber: req.ShippingAddress.HouseNumber,
			PostalCode:  req.ShippingAddress.PostalCode,
			City:        req.ShippingAddress.City,
			Country:     req.ShippingAddress.Country,
		},
		Items:  items,
		Method: req.Method,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.loggerFromContext(r.Context()).Info("checkout started",
		"order_id", result.OrderID,
		"order_number", result.OrderNumber,
		"total_cents", result.TotalCents,
	)
	h.writeData(w, r, http.StatusCreated, result)
}

func (h *Handlers) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.checkout.PaymentMethods(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, methods)
}

// OrderStatus serves the storefront confirmation page. The email must match
// the order.
func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}

	view, err := h.checkout.OrderStatus(r.Context(), pathID(r, "id"), email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, view)
}
