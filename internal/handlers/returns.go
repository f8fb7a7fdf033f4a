package handlers

import (
	"net/http"
	"strings"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

type returnItemRequest struct {
	OrderItemID string `json:"orderItemId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"min=1,max=99"`
}

type createReturnRequest struct {
	OrderID string              `json:"orderId" validate:"required"`
	Email   string              `json:"email" validate:"required,email"`
	Reason  string              `json:"reason" validate:"required,max=2000"`
	Items   []returnItemRequest `json:"items" validate:"max=50,dive"`
}

type updateReturnRequest struct {
	Status            string  `json:"status" validate:"required"`
	AdminNotes        *string `json:"adminNotes" validate:"omitempty,max=2000"`
	RefundAmountCents *int    `json:"refundAmountCents" validate:"omitempty,min=0"`
}

// CreateReturn opens a return request for a customer's order.
func (h *Handlers) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var req createReturnRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	items := make([]models.ReturnItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.ReturnItem{OrderItemID: item.OrderItemID, Quantity: item.Quantity})
	}

	ret, err := h.returns.Create(r.Context(), services.CreateReturnInput{
		OrderID: req.OrderID,
		Email:   req.Email,
		Reason:  req.Reason,
		Items:   items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.loggerFromContext(r.Context()).Info("return requested", "return_id", ret.ID, "order_id", ret.OrderID)
	h.writeData(w, r, http.StatusCreated, ret)
}

func (h *Handlers) ListReturns(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	returns, err := h.returns.List(r.Context(), services.ListReturnsInput{
		Status:  strings.TrimSpace(query.Get("status")),
		OrderID: strings.TrimSpace(query.Get("orderId")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, returns)
}

func (h *Handlers) GetReturn(w http.ResponseWriter, r *http.Request) {
	ret, err := h.returns.Get(r.Context(), pathID(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, ret)
}

// UpdateReturn moves a return to any status in the vocabulary.
func (h *Handlers) UpdateReturn(w http.ResponseWriter, r *http.Request) {
	var req updateReturnRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id := pathID(r, "id")
	ret, err := h.returns.UpdateStatus(r.Context(), id, services.UpdateReturnInput{
		Status:            req.Status,
		AdminNotes:        req.AdminNotes,
		RefundAmountCents: req.RefundAmountCents,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.loggerFromContext(r.Context()).Info("return updated", "return_id", id, "status", ret.Status)
	h.writeData(w, r, http.StatusOK, ret)
}
