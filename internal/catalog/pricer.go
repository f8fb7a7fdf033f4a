package catalog

import (
	"fmt"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

var DefaultShipping = ShippingConfig{
	FlatRateCents: 595,
	FreeOverCents: 5000,
	Carrier:       "postnl",
}

type Pricer struct {
	shipping ShippingConfig
}

func NewPricer(shipping ShippingConfig) *Pricer {
	return &Pricer{shipping: shipping}
}

// UnitPriceCents is the effective price of one unit: the product base price
// plus the variant adjustment when a variant is chosen.
func (p *Pricer) UnitPriceCents(product *models.Product, variant *models.ProductVariant) (int, error) {
	if product == nil {
		return 0, fmt.Errorf("product is required")
	}
	if !product.Active {
		return 0, fmt.Errorf("product with SKU %s is not active", product.SKU)
	}

	price := product.BasePriceCents
	if variant != nil {
		if !variant.Active {
			return 0, fmt.Errorf("variant with SKU %s is not active", variant.SKU)
		}
		price += variant.PriceAdjustmentCents
	}
	if price <= 0 {
		return 0, fmt.Errorf("product with SKU %s has no positive price", product.SKU)
	}
	return price, nil
}

func (p *Pricer) ComputeSubtotal(items []models.OrderItem) int {
	subtotal := 0
	for _, item := range items {
		subtotal += item.TotalCents()
	}
	return subtotal
}

// GetShippingCents applies the flat rate unless the subtotal reaches the
// free shipping threshold. A zero threshold disables free shipping.
func (p *Pricer) GetShippingCents(subtotalCents int) int {
	if p.shipping.FreeOverCents > 0 && subtotalCents >= p.shipping.FreeOverCents {
		return 0
	}
	return p.shipping.FlatRateCents
}

func (p *Pricer) Carrier() string {
	return p.shipping.Carrier
}
