package catalog

import (
	"strings"
	"unicode"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// ProductSlug returns the configured slug or one derived from the name.
func ProductSlug(product ProductConfig) string {
	if product.Slug != "" {
		return product.Slug
	}
	return Slugify(product.Name)
}

// Slugify lowercases s and joins its letter and digit runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// ToSeed converts a validated seed file into store rows.
func ToSeed(config *SeedConfig) db.CatalogSeed {
	seed := db.CatalogSeed{
		Categories: make([]models.Category, 0, len(config.Categories)),
		Products:   make([]db.SeedProduct, 0, len(config.Products)),
	}

	for _, c := range config.Categories {
		seed.Categories = append(seed.Categories, models.Category{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			Position:    c.Position,
		})
	}

	for _, p := range config.Products {
		product := models.Product{
			Slug:           ProductSlug(p),
			SKU:            p.SKU,
			Name:           p.Name,
			Description:    p.Description,
			BasePriceCents: p.UnitPriceCents,
			Stock:          p.Stock,
			Active:         p.Active,
			Variants:       make([]models.ProductVariant, 0, len(p.Variants)),
		}
		for _, v := range p.Variants {
			product.Variants = append(product.Variants, models.ProductVariant{
				SKU:                  v.SKU,
				Name:                 v.Name,
				PriceAdjustmentCents: v.PriceAdjustmentCents,
				Stock:                v.Stock,
				Active:               v.Active,
			})
		}
		seed.Products = append(seed.Products, db.SeedProduct{
			Product:      product,
			CategorySlug: p.Category,
		})
	}

	return seed
}
