package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/observability"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
)

// defaultEnqueueTimeout bounds the hand-off to the queue so a slow broker
// cannot hold the provider's acknowledgement.
const defaultEnqueueTimeout = 2 * time.Second

type webhookAck struct {
	Received bool `json:"received"`
}

type mollieWebhookPayload struct {
	ID string `json:"id"`
}

// MollieWebhook accepts a payment notification and hands the payment id to
// the reconciliation queue. The notification carries only the id; workers
// re-read the payment from the provider. Once an id is present the response
// is 200 whatever happens downstream, otherwise the provider keeps retrying.
func (h *Handlers) MollieWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		observability.WebhooksReceived.WithLabelValues("mollie", "rejected").Inc()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		logger.Error("failed to read mollie webhook body", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}

	paymentID := strings.TrimSpace(molliePaymentID(r.Header.Get("Content-Type"), body))
	if paymentID == "" {
		observability.WebhooksReceived.WithLabelValues("mollie", "rejected").Inc()
		logger.Warn("mollie webhook without payment id")
		h.writeError(w, r, http.StatusBadRequest, "payment id is required")
		return
	}

	logger = logger.With("payment_id", paymentID)
	job := queue.Job{PaymentID: paymentID, ReceivedAt: time.Now().UTC()}
	enqueueCtx, cancel := context.WithTimeout(ctx, h.webhookEnqueueTimeout())
	err = h.queue.Enqueue(enqueueCtx, job)
	cancel()
	if err != nil {
		observability.WebhooksReceived.WithLabelValues("mollie", "enqueue_failed").Inc()
		logger.Error("failed to enqueue reconciliation job", "error", err)
		observability.CaptureError(ctx, err, map[string]string{
			"component":  "webhook.mollie",
			"payment_id": paymentID,
		})
	} else {
		observability.WebhooksReceived.WithLabelValues("mollie", "enqueued").Inc()
		logger.Info("mollie webhook accepted")
	}

	h.writeData(w, r, http.StatusOK, webhookAck{Received: true})
}

func (h *Handlers) webhookEnqueueTimeout() time.Duration {
	if h.enqueueTimeout > 0 {
		return h.enqueueTimeout
	}
	return defaultEnqueueTimeout
}

// molliePaymentID reads the id from either a JSON body or Mollie's
// form-encoded notification.
func molliePaymentID(contentType string, body []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || (mediaType == "" && len(body) > 0 && body[0] == '{') {
		var payload mollieWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		return payload.ID
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return values.Get("id")
}

type myParcelWebhook struct {
	Data struct {
		Hooks []struct {
			Event      string `json:"event"`
			ShipmentID int64  `json:"shipment_id"`
			Status     int    `json:"status"`
			Barcode    string `json:"barcode"`
		} `json:"hooks"`
	} `json:"data"`
}

// MyParcelWebhook logs carrier status notifications and acknowledges them.
// Tracking numbers are entered through the admin API.
func (h *Handlers) MyParcelWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		observability.WebhooksReceived.WithLabelValues("myparcel", "rejected").Inc()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}

	var payload myParcelWebhook
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Data.Hooks) == 0 {
		logger.Info("myparcel webhook received", "bytes", len(body))
	} else {
		for _, hook := range payload.Data.Hooks {
			logger.Info("myparcel webhook received",
				"event", hook.Event,
				"shipment_id", hook.ShipmentID,
				"shipment_status", hook.Status,
				"barcode", hook.Barcode,
			)
		}
	}

	observability.WebhooksReceived.WithLabelValues("myparcel", "acknowledged").Inc()
	h.writeData(w, r, http.StatusOK, webhookAck{Received: true})
}
