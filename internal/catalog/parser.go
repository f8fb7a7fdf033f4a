// Package catalog parses, validates and prices the shop catalog seed file.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SeedConfig struct {
	Shop       ShopConfig       `yaml:"shop"`
	Categories []CategoryConfig `yaml:"categories"`
	Products   []ProductConfig  `yaml:"products"`
}

type ShopConfig struct {
	Name     string         `yaml:"name"`
	Currency string         `yaml:"currency"`
	Shipping ShippingConfig `yaml:"shipping"`
}

type ShippingConfig struct {
	FlatRateCents int    `yaml:"flat_rate_cents"`
	FreeOverCents int    `yaml:"free_over_cents"`
	Carrier       string `yaml:"carrier"`
}

type CategoryConfig struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Position    int    `yaml:"position"`
}

type ProductConfig struct {
	SKU            string          `yaml:"sku"`
	Slug           string          `yaml:"slug"`
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description"`
	Category       string          `yaml:"category"`
	UnitPriceCents int             `yaml:"unit_price_cents"`
	Stock          int             `yaml:"stock"`
	Active         bool            `yaml:"active"`
	Variants       []VariantConfig `yaml:"variants"`
}

type VariantConfig struct {
	SKU                  string `yaml:"sku"`
	Name                 string `yaml:"name"`
	PriceAdjustmentCents int    `yaml:"price_adjustment_cents"`
	Stock                int    `yaml:"stock"`
	Active               bool   `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*SeedConfig, error) {
	var config SeedConfig
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func (p *Parser) ParseFromString(content string) (*SeedConfig, error) {
	return p.Parse([]byte(content))
}

func (p *Parser) ParseFile(path string) (*SeedConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed file: %w", err)
	}
	return p.Parse(content)
}
