package models

import (
	"strings"
	"time"
)

type ReturnStatus string

const (
	ReturnRequested       ReturnStatus = "REQUESTED"
	ReturnLabelCreated    ReturnStatus = "LABEL_CREATED"
	ReturnLabelSent       ReturnStatus = "LABEL_SENT"
	ReturnInTransit       ReturnStatus = "IN_TRANSIT"
	ReturnReceived        ReturnStatus = "RECEIVED"
	ReturnInspected       ReturnStatus = "INSPECTED"
	ReturnApproved        ReturnStatus = "APPROVED"
	ReturnRejected        ReturnStatus = "REJECTED"
	ReturnRefundPending   ReturnStatus = "REFUND_PENDING"
	ReturnRefundProcessed ReturnStatus = "REFUND_PROCESSED"
	ReturnClosed          ReturnStatus = "CLOSED"
)

var returnStatuses = []ReturnStatus{
	ReturnRequested,
	ReturnLabelCreated,
	ReturnLabelSent,
	ReturnInTransit,
	ReturnReceived,
	ReturnInspected,
	ReturnApproved,
	ReturnRejected,
	ReturnRefundPending,
	ReturnRefundProcessed,
	ReturnClosed,
}

// ReturnStatuses returns the full return status vocabulary in workflow order.
func ReturnStatuses() []ReturnStatus {
	out := make([]ReturnStatus, len(returnStatuses))
	copy(out, returnStatuses)
	return out
}

// ParseReturnStatus accepts any casing and surrounding whitespace.
func ParseReturnStatus(value string) (ReturnStatus, bool) {
	candidate := ReturnStatus(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range returnStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Open reports whether a return in this status still blocks a new return for
// the same order.
func (s ReturnStatus) Open() bool {
	switch s {
	case ReturnRejected, ReturnRefundProcessed, ReturnClosed:
		return false
	default:
		return true
	}
}

type ReturnItem struct {
	OrderItemID string `json:"orderItemId"`
	Quantity    int    `json:"quantity"`
}

type Return struct {
	ID                string       `json:"id"`
	OrderID           string       `json:"orderId"`
	Reason            string       `json:"reason"`
	Items             []ReturnItem `json:"items"`
	Status            ReturnStatus `json:"status"`
	AdminNotes        string       `json:"adminNotes,omitempty"`
	RefundAmountCents int          `json:"refundAmountCents"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	ApprovedAt        *time.Time   `json:"approvedAt,omitempty"`
	RefundedAt        *time.Time   `json:"refundedAt,omitempty"`
}
