package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

var (
	categoryColumns = []string{"id", "slug", "name", "description", "position", "created_at", "updated_at"}
	productColumns  = []string{
		"p.id", "p.slug", "p.sku", "p.name", "p.description", "p.category_id",
		"p.base_price_cents", "p.stock", "p.active", "p.created_at", "p.updated_at",
	}
	variantColumns = []string{
		"id", "product_id", "sku", "name", "price_adjustment_cents", "stock", "active", "created_at", "updated_at",
	}
)

type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	query, args, err := psql.Select(categoryColumns...).From("categories").OrderBy("position", "name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (s *CatalogStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	query, args, err := psql.Select(categoryColumns...).From("categories").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	category, err := scanCategory(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return category, nil
}

func (s *CatalogStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now

	query, args, err := psql.Insert("categories").
		Columns(categoryColumns...).
		Values(category.ID, category.Slug, category.Name, category.Description, category.Position, now, now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

func (s *CatalogStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	query, args, err := psql.Update("categories").
		SetMap(map[string]any{
			"slug":        category.Slug,
			"name":        category.Name,
			"description": category.Description,
			"position":    category.Position,
			"updated_at":  category.UpdatedAt,
		}).
		Where(sq.Eq{"id": category.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args...)
}

func (s *CatalogStore) DeleteCategory(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM categories WHERE id = $1`, id)
}

// ListProducts returns products with their variants, ordered by name.
func (s *CatalogStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	builder := psql.Select(productColumns...).From("products p")
	if filter.CategorySlug != "" {
		builder = builder.
			Join("categories c ON c.id = p.category_id").
			Where(sq.Eq{"c.slug": filter.CategorySlug})
	}
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"p.active": true})
	}
	query, args, err := builder.OrderBy("p.name").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		products = append(products, *product)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadVariants(ctx, products, filter.ActiveOnly); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.getProduct(ctx, sq.Eq{"p.id": id})
}

func (s *CatalogStore) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.getProduct(ctx, sq.Eq{"p.slug": slug})
}

func (s *CatalogStore) getProduct(ctx context.Context, where sq.Eq) (*models.Product, error) {
	query, args, err := psql.Select(productColumns...).From("products p").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	product, err := scanProduct(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	products := []models.Product{*product}
	if err := s.loadVariants(ctx, products, false); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// CreateProduct inserts the product and its variants in one transaction.
func (s *CatalogStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query, args, err := psql.Insert("products").
			Columns("id", "slug", "sku", "name", "description", "category_id", "base_price_cents", "stock", "active", "created_at", "updated_at").
			Values(product.ID, product.Slug, product.SKU, product.Name, product.Description, textOrNull(product.CategoryID),
				product.BasePriceCents, product.Stock, product.Active, now, now).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		for i := range product.Variants {
			product.Variants[i].ProductID = product.ID
			if err := insertVariant(ctx, tx, &product.Variants[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}

// UpdateProduct replaces the product fields. Variants are managed separately.
func (s *CatalogStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	query, args, err := psql.Update("products").
		SetMap(map[string]any{
			"slug":             product.Slug,
			"sku":              product.SKU,
			"name":             product.Name,
			"description":      product.Description,
			"category_id":      textOrNull(product.CategoryID),
			"base_price_cents": product.BasePriceCents,
			"stock":            product.Stock,
			"active":           product.Active,
			"updated_at":       product.UpdatedAt,
		}).
		Where(sq.Eq{"id": product.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args...)
}

func (s *CatalogStore) DeleteProduct(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM products WHERE id = $1`, id)
}

func (s *CatalogStore) GetVariant(ctx context.Context, id string) (*models.ProductVariant, error) {
	query, args, err := psql.Select(variantColumns...).From("product_variants").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	variant, err := scanVariant(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return variant, nil
}

func (s *CatalogStore) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return classify(insertVariant(ctx, s.pool, variant))
}

func (s *CatalogStore) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	variant.UpdatedAt = time.Now().UTC()
	query, args, err := psql.Update("product_variants").
		SetMap(map[string]any{
			"sku":                    variant.SKU,
			"name":                   variant.Name,
			"price_adjustment_cents": variant.PriceAdjustmentCents,
			"stock":                  variant.Stock,
			"active":                 variant.Active,
			"updated_at":             variant.UpdatedAt,
		}).
		Where(sq.Eq{"id": variant.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args...)
}

func (s *CatalogStore) DeleteVariant(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
}

// UpsertSeed writes categories by slug and products and variants by SKU in a
// single transaction. Rows missing from the seed are left alone.
func (s *CatalogStore) UpsertSeed(ctx context.Context, seed CatalogSeed) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		categoryIDs := make(map[string]string, len(seed.Categories))
		for _, category := range seed.Categories {
			var id string
			err := tx.QueryRow(ctx, `
				INSERT INTO categories (id, slug, name, description, position)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (slug) DO UPDATE
				SET name = EXCLUDED.name, description = EXCLUDED.description,
				    position = EXCLUDED.position, updated_at = NOW()
				RETURNING id
			`, uuid.NewString(), category.Slug, category.Name, category.Description, category.Position).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", category.Slug, err)
			}
			categoryIDs[category.Slug] = id
		}

		for _, seeded := range seed.Products {
			product := seeded.Product
			categoryID := categoryIDs[seeded.CategorySlug]
			var productID string
			err := tx.QueryRow(ctx, `
				INSERT INTO products (id, slug, sku, name, description, category_id, base_price_cents, stock, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (sku) DO UPDATE
				SET slug = EXCLUDED.slug, name = EXCLUDED.name, description = EXCLUDED.description,
				    category_id = EXCLUDED.category_id, base_price_cents = EXCLUDED.base_price_cents,
				    stock = EXCLUDED.stock, active = EXCLUDED.active, updated_at = NOW()
				RETURNING id
			`, uuid.NewString(), product.Slug, product.SKU, product.Name, product.Description, textOrNull(categoryID),
				product.BasePriceCents, product.Stock, product.Active).Scan(&productID)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", product.SKU, err)
			}

			for _, variant := range product.Variants {
				_, err := tx.Exec(ctx, `
					INSERT INTO product_variants (id, product_id, sku, name, price_adjustment_cents, stock, active)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					ON CONFLICT (sku) DO UPDATE
					SET product_id = EXCLUDED.product_id, name = EXCLUDED.name,
					    price_adjustment_cents = EXCLUDED.price_adjustment_cents,
					    stock = EXCLUDED.stock, active = EXCLUDED.active, updated_at = NOW()
				`, uuid.NewString(), productID, variant.SKU, variant.Name, variant.PriceAdjustmentCents, variant.Stock, variant.Active)
				if err != nil {
					return fmt.Errorf("failed to upsert variant %s: %w", variant.SKU, err)
				}
			}
		}
		return nil
	})
}

func (s *CatalogStore) loadVariants(ctx context.Context, products []models.Product, activeOnly bool) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Variants = []models.ProductVariant{}
	}

	builder := psql.Select(variantColumns...).From("product_variants").Where(sq.Eq{"product_id": ids})
	if activeOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}
	query, args, err := builder.OrderBy("product_id", "name").ToSql()
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return err
		}
		if i, ok := index[variant.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, *variant)
		}
	}
	return rows.Err()
}

func (s *CatalogStore) execOne(ctx context.Context, query string, args ...any) error {
	cmdTag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertVariant(ctx context.Context, q querier, variant *models.ProductVariant) error {
	if variant.ID == "" {
		variant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	variant.CreatedAt, variant.UpdatedAt = now, now
	query, args, err := psql.Insert("product_variants").
		Columns(variantColumns...).
		Values(variant.ID, variant.ProductID, variant.SKU, variant.Name, variant.PriceAdjustmentCents,
			variant.Stock, variant.Active, now, now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert variant: %w", err)
	}
	return nil
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var (
		p          models.Product
		categoryID pgtype.Text
	)
	err := row.Scan(&p.ID, &p.Slug, &p.SKU, &p.Name, &p.Description, &categoryID,
		&p.BasePriceCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.String
	p.Variants = []models.ProductVariant{}
	return &p, nil
}

func scanVariant(row pgx.Row) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.PriceAdjustmentCents, &v.Stock, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
