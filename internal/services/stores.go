package services

import (
	"context"

	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// OrderStore is the persistence the order, checkout and reconciliation
// services need. *db.OrderStore implements it.
type OrderStore interface {
	Create(ctx context.Context, order *db.Order) error
	GetByID(ctx context.Context, id string) (*db.Order, error)
	List(ctx context.Context, filter db.OrderFilter) ([]*db.Order, error)
	Update(ctx context.Context, id string, update db.OrderUpdate) (*db.Order, error)
	MarkProcessing(ctx context.Context, orderID string) (bool, error)
	AttachPayment(ctx context.Context, payment *db.Payment) error
	SetPaymentStatus(ctx context.Context, providerPaymentID, providerStatus string, status models.PaymentStatus) (db.PaymentTransition, error)
}

type ReturnStore interface {
	Create(ctx context.Context, ret *db.Return) error
	GetByID(ctx context.Context, id string) (*db.Return, error)
	List(ctx context.Context, filter db.ReturnFilter) ([]*db.Return, error)
	UpdateStatus(ctx context.Context, id string, update db.ReturnStatusUpdate) (*db.Return, error)
	ExistsOpenForOrder(ctx context.Context, orderID string) (bool, error)
}

type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, filter db.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetVariant(ctx context.Context, id string) (*models.ProductVariant, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) error
	DeleteVariant(ctx context.Context, id string) error

	UpsertSeed(ctx context.Context, seed db.CatalogSeed) error
}

var (
	_ OrderStore   = (*db.OrderStore)(nil)
	_ ReturnStore  = (*db.ReturnStore)(nil)
	_ CatalogStore = (*db.CatalogStore)(nil)
)
