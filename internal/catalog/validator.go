package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug reports whether slug is lowercase words joined by single hyphens.
func IsValidSlug(slug string) bool {
	return slugRegex.MatchString(slug)
}

func (v *Validator) Validate(config *SeedConfig) error {
	if err := v.validateShop(&config.Shop); err != nil {
		return fmt.Errorf("shop validation failed: %w", err)
	}

	categories := make(map[string]bool)
	for i, category := range config.Categories {
		if err := v.validateCategory(&category); err != nil {
			return fmt.Errorf("category %d validation failed: %w", i, err)
		}
		if categories[category.Slug] {
			return fmt.Errorf("duplicate category slug: %s", category.Slug)
		}
		categories[category.Slug] = true
	}

	if len(config.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	skus := make(map[string]bool)
	slugs := make(map[string]bool)
	for i, product := range config.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}
		if product.Category != "" && !categories[product.Category] {
			return fmt.Errorf("product %s references unknown category %s", product.SKU, product.Category)
		}

		if skus[product.SKU] {
			return fmt.Errorf("duplicate SKU: %s", product.SKU)
		}
		skus[product.SKU] = true

		slug := ProductSlug(product)
		if slugs[slug] {
			return fmt.Errorf("duplicate product slug: %s", slug)
		}
		slugs[slug] = true

		for _, variant := range product.Variants {
			if skus[variant.SKU] {
				return fmt.Errorf("duplicate SKU: %s", variant.SKU)
			}
			skus[variant.SKU] = true
		}
	}

	return nil
}

func (v *Validator) validateShop(shop *ShopConfig) error {
	if strings.TrimSpace(shop.Name) == "" {
		return fmt.Errorf("shop name is required")
	}

	if !strings.EqualFold(shop.Currency, "eur") {
		return fmt.Errorf("only EUR currency is supported")
	}

	if shop.Shipping.FlatRateCents < 0 {
		return fmt.Errorf("shipping flat rate must be zero or positive")
	}

	if shop.Shipping.FreeOverCents < 0 {
		return fmt.Errorf("free shipping threshold must be zero or positive")
	}

	if strings.TrimSpace(shop.Shipping.Carrier) == "" {
		return fmt.Errorf("shipping carrier is required")
	}

	return nil
}

func (v *Validator) validateCategory(category *CategoryConfig) error {
	if !IsValidSlug(category.Slug) {
		return fmt.Errorf("category slug %q is invalid", category.Slug)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("product SKU is required")
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.Slug != "" && !IsValidSlug(product.Slug) {
		return fmt.Errorf("product slug %q is invalid", product.Slug)
	}

	if product.UnitPriceCents <= 0 {
		return fmt.Errorf("product unit price must be positive")
	}

	if product.Stock < 0 {
		return fmt.Errorf("product stock cannot be negative")
	}

	variantNames := make(map[string]bool)
	for i, variant := range product.Variants {
		if err := v.validateVariant(&variant, product.UnitPriceCents); err != nil {
			return fmt.Errorf("variant %d validation failed: %w", i, err)
		}

		if variantNames[variant.Name] {
			return fmt.Errorf("duplicate variant name: %s", variant.Name)
		}
		variantNames[variant.Name] = true
	}

	return nil
}

func (v *Validator) validateVariant(variant *VariantConfig, basePriceCents int) error {
	if strings.TrimSpace(variant.SKU) == "" {
		return fmt.Errorf("variant SKU is required")
	}

	if strings.TrimSpace(variant.Name) == "" {
		return fmt.Errorf("variant name is required")
	}

	if basePriceCents+variant.PriceAdjustmentCents <= 0 {
		return fmt.Errorf("variant price must stay positive")
	}

	if variant.Stock < 0 {
		return fmt.Errorf("variant stock cannot be negative")
	}

	return nil
}
