package payments

import (
	"strings"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// MapStatus translates a provider payment status. Statuses that are not final
// (open, pending, authorized) and anything unrecognised stay pending.
func MapStatus(providerStatus string) models.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "paid":
		return models.PaymentPaid
	case "failed", "expired", "canceled":
		return models.PaymentFailed
	case "refunded":
		return models.PaymentRefunded
	default:
		return models.PaymentPending
	}
}
