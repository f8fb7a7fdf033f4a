package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/cache"
	"github.com/User-Emin/kattenbak-sub003/internal/catalog"
	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

const catalogCacheTTL = 5 * time.Minute

type seedParser interface {
	ParseFile(path string) (*catalog.SeedConfig, error)
}

type seedValidator interface {
	Validate(config *catalog.SeedConfig) error
}

// CatalogService serves the storefront catalog through the cache and
// applies admin edits, dropping cached catalog entries after each write.
type CatalogService struct {
	store     CatalogStore
	cache     cache.Provider
	parser    seedParser
	validator seedValidator
	logger    *slog.Logger
}

func NewCatalogService(store CatalogStore, cacheProvider cache.Provider, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		cache:     cacheProvider,
		parser:    catalog.NewParser(),
		validator: catalog.NewValidator(),
		logger:    logger,
	}
}

func (s *CatalogService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CategoryInput struct {
	Slug        string
	Name        string
	Description string
	Position    int
}

type ProductInput struct {
	Slug           string
	SKU            string
	Name           string
	Description    string
	CategoryID     string
	BasePriceCents int
	Stock          int
	Active         bool
	Variants       []VariantInput
}

type VariantInput struct {
	SKU                  string
	Name                 string
	PriceAdjustmentCents int
	Stock                int
	Active               bool
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if s.cached(ctx, cache.CategoriesKey(), &categories) {
		return categories, nil
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, storeError(err, "list categories")
	}
	s.remember(ctx, cache.CategoriesKey(), categories)
	return categories, nil
}

// Products lists active products, optionally limited to one category slug.
func (s *CatalogService) Products(ctx context.Context, categorySlug string) ([]models.Product, error) {
	categorySlug = strings.ToLower(strings.TrimSpace(categorySlug))
	key := cache.ProductListKey(categorySlug)

	var products []models.Product
	if s.cached(ctx, key, &products) {
		return products, nil
	}
	products, err := s.store.ListProducts(ctx, db.ProductFilter{CategorySlug: categorySlug, ActiveOnly: true})
	if err != nil {
		return nil, storeError(err, "list products")
	}
	s.remember(ctx, key, products)
	return products, nil
}

// Product returns an active product by slug. Inactive products read as not found.
func (s *CatalogService) Product(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, validationError("slug is required")
	}
	key := cache.ProductKey(slug)

	var product models.Product
	if s.cached(ctx, key, &product) {
		return &product, nil
	}
	found, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, storeError(err, "load product")
	}
	if !found.Active {
		return nil, storeError(db.ErrNotFound, "load product")
	}
	active := make([]models.ProductVariant, 0, len(found.Variants))
	for _, v := range found.Variants {
		if v.Active {
			active = append(active, v)
		}
	}
	found.Variants = active
	s.remember(ctx, key, found)
	return found, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	category, err := categoryFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, storeError(err, "create category")
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*models.Category, error) {
	existing, err := s.store.GetCategory(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, storeError(err, "load category")
	}
	category, err := categoryFromInput(input)
	if err != nil {
		return nil, err
	}
	category.ID = existing.ID
	category.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, storeError(err, "update category")
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, strings.TrimSpace(id)); err != nil {
		return storeError(err, "delete category")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	product, err := productFromInput(input)
	if err != nil {
		return nil, err
	}
	for i, v := range input.Variants {
		variant, err := variantFromInput(v, product.BasePriceCents)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i+1, err)
		}
		product.Variants = append(product.Variants, *variant)
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, storeError(err, "create product")
	}
	s.invalidate(ctx)
	s.loggerFromContext(ctx).Info("product created", "product_id", product.ID, "sku", product.SKU)
	return product, nil
}

// UpdateProduct replaces the product fields. Variants are edited through
// the variant operations.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*models.Product, error) {
	existing, err := s.store.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, storeError(err, "load product")
	}
	product, err := productFromInput(input)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	product.Variants = existing.Variants
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, storeError(err, "update product")
	}
	s.invalidate(ctx)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, strings.TrimSpace(id)); err != nil {
		return storeError(err, "delete product")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) CreateVariant(ctx context.Context, productID string, input VariantInput) (*models.ProductVariant, error) {
	product, err := s.store.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return nil, storeError(err, "load product")
	}
	variant, err := variantFromInput(input, product.BasePriceCents)
	if err != nil {
		return nil, err
	}
	variant.ProductID = product.ID
	if err := s.store.CreateVariant(ctx, variant); err != nil {
		return nil, storeError(err, "create variant")
	}
	s.invalidate(ctx)
	return variant, nil
}

func (s *CatalogService) UpdateVariant(ctx context.Context, id string, input VariantInput) (*models.ProductVariant, error) {
	existing, err := s.store.GetVariant(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, storeError(err, "load variant")
	}
	product, err := s.store.GetProduct(ctx, existing.ProductID)
	if err != nil {
		return nil, storeError(err, "load product")
	}
	variant, err := variantFromInput(input, product.BasePriceCents)
	if err != nil {
		return nil, err
	}
	variant.ID = existing.ID
	variant.ProductID = existing.ProductID
	variant.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateVariant(ctx, variant); err != nil {
		return nil, storeError(err, "update variant")
	}
	s.invalidate(ctx)
	return variant, nil
}

func (s *CatalogService) DeleteVariant(ctx context.Context, id string) error {
	if err := s.store.DeleteVariant(ctx, strings.TrimSpace(id)); err != nil {
		return storeError(err, "delete variant")
	}
	s.invalidate(ctx)
	return nil
}

// SeedFromFile parses and validates a YAML catalog file and upserts it.
// The parsed config is returned so callers can apply its shop settings.
func (s *CatalogService) SeedFromFile(ctx context.Context, path string) (*catalog.SeedConfig, error) {
	config, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	if err := s.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid catalog seed: %w", err)
	}
	if err := s.store.UpsertSeed(ctx, catalog.ToSeed(config)); err != nil {
		return nil, fmt.Errorf("failed to store catalog seed: %w", err)
	}
	s.invalidate(ctx)
	s.loggerFromContext(ctx).Info("catalog seed applied", "path", path, "categories", len(config.Categories), "products", len(config.Products))
	return config, nil
}

func (s *CatalogService) cached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := cache.GetJSON(ctx, s.cache, key, dest)
	if err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *CatalogService) remember(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, catalogCacheTTL); err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	logger := s.loggerFromContext(ctx)
	if err := cache.InvalidateProducts(ctx, s.cache); err != nil {
		logger.Warn("failed to invalidate cached products", "error", err)
	}
	if err := s.cache.Delete(ctx, cache.CategoriesKey()); err != nil {
		logger.Warn("failed to invalidate cached categories", "error", err)
	}
}

func categoryFromInput(input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("category name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = catalog.Slugify(name)
	}
	if !catalog.IsValidSlug(slug) {
		return nil, validationError("invalid slug %q", slug)
	}
	if input.Position < 0 {
		return nil, validationError("position must not be negative")
	}
	return &models.Category{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Position:    input.Position,
	}, nil
}

func productFromInput(input ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	switch {
	case name == "":
		return nil, validationError("product name is required")
	case sku == "":
		return nil, validationError("sku is required")
	case input.BasePriceCents <= 0:
		return nil, validationError("base price must be positive")
	case input.Stock < 0:
		return nil, validationError("stock must not be negative")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = catalog.Slugify(name)
	}
	if !catalog.IsValidSlug(slug) {
		return nil, validationError("invalid slug %q", slug)
	}
	return &models.Product{
		Slug:           slug,
		SKU:            sku,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		CategoryID:     strings.TrimSpace(input.CategoryID),
		BasePriceCents: input.BasePriceCents,
		Stock:          input.Stock,
		Active:         input.Active,
	}, nil
}

func variantFromInput(input VariantInput, basePriceCents int) (*models.ProductVariant, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	switch {
	case name == "":
		return nil, validationError("variant name is required")
	case sku == "":
		return nil, validationError("variant sku is required")
	case input.Stock < 0:
		return nil, validationError("variant stock must not be negative")
	case basePriceCents+input.PriceAdjustmentCents <= 0:
		return nil, validationError("variant price must stay positive")
	}
	return &models.ProductVariant{
		SKU:                  sku,
		Name:                 name,
		PriceAdjustmentCents: input.PriceAdjustmentCents,
		Stock:                input.Stock,
		Active:               input.Active,
	}, nil
}
