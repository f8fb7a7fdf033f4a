package models

import "time"

type Category struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Product struct {
	ID             string           `json:"id"`
	Slug           string           `json:"slug"`
	SKU            string           `json:"sku"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	CategoryID     string           `json:"categoryId,omitempty"`
	BasePriceCents int              `json:"basePriceCents"`
	Stock          int              `json:"stock"`
	Active         bool             `json:"active"`
	Variants       []ProductVariant `json:"variants"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Variant returns the variant with the given id.
func (p *Product) Variant(id string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

type ProductVariant struct {
	ID                   string    `json:"id"`
	ProductID            string    `json:"productId"`
	SKU                  string    `json:"sku"`
	Name                 string    `json:"name"`
	PriceAdjustmentCents int       `json:"priceAdjustmentCents"`
	Stock                int       `json:"stock"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
