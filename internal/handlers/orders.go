package handlers

import (
	"net/http"
	"strings"

	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

type updateOrderRequest struct {
	Status         *string `json:"status" validate:"omitempty,max=32"`
	PaymentStatus  *string `json:"paymentStatus" validate:"omitempty,max=32"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitempty,max=64"`
	Carrier        *string `json:"carrier" validate:"omitempty,max=32"`
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	orders, err := h.orders.List(r.Context(), services.ListOrdersInput{
		Status:        strings.TrimSpace(query.Get("status")),
		PaymentStatus: strings.TrimSpace(query.Get("paymentStatus")),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), pathID(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, order)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id := pathID(r, "id")
	order, err := h.orders.Update(r.Context(), id, services.UpdateOrderInput{
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.loggerFromContext(r.Context()).Info("order updated",
		"order_id", id,
		"status", order.Status,
		"payment_status", order.PaymentStatus,
	)
	h.writeData(w, r, http.StatusOK, order)
}
