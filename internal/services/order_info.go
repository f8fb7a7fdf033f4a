package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/email"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// ShopInfo identifies the shop in customer emails.
type ShopInfo struct {
	Name string
	URL  string
}

// OrderInfoOverrides provides optional overrides when building order email data.
type OrderInfoOverrides struct {
	TrackingNumber  string
	TrackingURL     string
	TrackingCarrier string
	OrderDate       time.Time
}

// BuildOrderInfo builds a consistent OrderInfo payload for email templates.
func BuildOrderInfo(shop ShopInfo, order *models.Order, overrides OrderInfoOverrides) *email.OrderInfo {
	if order == nil {
		order = &models.Order{}
	}

	orderDate := overrides.OrderDate
	if orderDate.IsZero() {
		orderDate = order.CreatedAt
	}
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	trackingNumber := firstNonEmpty(overrides.TrackingNumber, order.TrackingNumber)
	trackingURL := firstNonEmpty(overrides.TrackingURL, order.TrackingURL)
	carrier := firstNonEmpty(overrides.TrackingCarrier, order.Carrier)

	items := make([]email.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, email.OrderItem{
			Name:       item.ProductName,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  formatPrice(item.UnitPriceCents),
			TotalPrice: formatPrice(item.TotalCents()),
		})
	}

	return &email.OrderInfo{
		OrderNumber:     order.OrderNumber,
		CustomerName:    strings.TrimSpace(order.CustomerName),
		CustomerEmail:   strings.TrimSpace(order.CustomerEmail),
		ShopName:        shop.Name,
		ShopURL:         shop.URL,
		ShippingAddress: formatAddress(order.CustomerName, order.ShippingAddress),
		TrackingNumber:  trackingNumber,
		TrackingURL:     trackingURL,
		TrackingCarrier: NormalizeCarrierName(carrier),
		OrderDate:       orderDate.Format("2 January 2006"),
		Items:           items,
		Subtotal:        formatPrice(order.SubtotalCents),
		Shipping:        formatPrice(order.ShippingCents),
		Total:           formatPrice(order.TotalCents),
	}
}

// BuildReturnInfo builds the return status email payload.
func BuildReturnInfo(shop ShopInfo, ret *models.Return, order *models.Order) *email.ReturnInfo {
	info := &email.ReturnInfo{
		ShopName: shop.Name,
		ShopURL:  shop.URL,
	}
	if ret != nil {
		info.ReturnID = ret.ID
		info.Status = string(ret.Status)
		info.StatusLabel = ReturnStatusLabel(ret.Status)
		info.AdminNotes = ret.AdminNotes
		if ret.RefundAmountCents > 0 {
			info.RefundAmount = formatPrice(ret.RefundAmountCents)
		}
	}
	if order != nil {
		info.OrderNumber = order.OrderNumber
		info.CustomerName = order.CustomerName
		info.CustomerEmail = order.CustomerEmail
	}
	return info
}

// ReturnStatusLabel turns REFUND_PENDING into "Refund pending".
func ReturnStatusLabel(status models.ReturnStatus) string {
	label := strings.ToLower(strings.ReplaceAll(string(status), "_", " "))
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func formatAddress(name string, address models.Address) string {
	lines := make([]string, 0, 4)
	if name = strings.TrimSpace(name); name != "" {
		lines = append(lines, name)
	}
	if street := strings.TrimSpace(strings.TrimSpace(address.Street) + " " + strings.TrimSpace(address.HouseNumber)); street != "" {
		lines = append(lines, street)
	}
	if city := strings.TrimSpace(strings.TrimSpace(address.PostalCode) + " " + strings.TrimSpace(address.City)); city != "" {
		lines = append(lines, city)
	}
	if country := strings.TrimSpace(address.Country); country != "" {
		lines = append(lines, country)
	}
	return strings.Join(lines, "\n")
}

func formatPrice(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s€%d.%02d", sign, cents/100, cents%100)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
