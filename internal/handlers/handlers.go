package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/config"
	"github.com/User-Emin/kattenbak-sub003/internal/logging"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
	"github.com/User-Emin/kattenbak-sub003/internal/ratelimit"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

type orderService interface {
	List(ctx context.Context, input services.ListOrdersInput) ([]*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, id string, input services.UpdateOrderInput) (*models.Order, error)
}

type returnService interface {
	Create(ctx context.Context, input services.CreateReturnInput) (*models.Return, error)
	Get(ctx context.Context, id string) (*models.Return, error)
	List(ctx context.Context, input services.ListReturnsInput) ([]*models.Return, error)
	UpdateStatus(ctx context.Context, id string, input services.UpdateReturnInput) (*models.Return, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
	PaymentMethods(ctx context.Context) ([]payments.Method, error)
	OrderStatus(ctx context.Context, orderID, email string) (*services.OrderStatusView, error)
}

type catalogService interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Products(ctx context.Context, categorySlug string) ([]models.Product, error)
	Product(ctx context.Context, slug string) (*models.Product, error)

	CreateCategory(ctx context.Context, input services.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, input services.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateProduct(ctx context.Context, input services.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, input services.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CreateVariant(ctx context.Context, productID string, input services.VariantInput) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, id string, input services.VariantInput) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, id string) error
}

type authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Token, error)
	RequireRole(token, role string) (*auth.Claims, error)
}

type jobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the HTTP handlers of the storefront and admin API.
type Handlers struct {
	config   *config.Config
	db       pinger
	orders   orderService
	returns  returnService
	checkout checkoutService
	catalog  catalogService
	auth     authenticator
	limiter  ratelimit.Limiter
	queue    jobQueue
	logger   *slog.Logger

	enqueueTimeout time.Duration
}

type Dependencies struct {
	Config   *config.Config
	DB       pinger
	Orders   orderService
	Returns  returnService
	Checkout checkoutService
	Catalog  catalogService
	Auth     authenticator
	Limiter  ratelimit.Limiter
	Queue    jobQueue
	Logger   *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("handlers dependencies: orders is required")
	}
	if deps.Returns == nil {
		return nil, fmt.Errorf("handlers dependencies: returns is required")
	}
	if deps.Checkout == nil {
		return nil, fmt.Errorf("handlers dependencies: checkout is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("handlers dependencies: catalog is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("handlers dependencies: auth is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("handlers dependencies: limiter is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("handlers dependencies: queue is required")
	}

	return &Handlers{
		config:   deps.Config,
		db:       deps.DB,
		orders:   deps.Orders,
		returns:  deps.Returns,
		checkout: deps.Checkout,
		catalog:  deps.Catalog,
		auth:     deps.Auth,
		limiter:  deps.Limiter,
		queue:    deps.Queue,
		logger:   logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		if encodeErr := writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"}); encodeErr != nil {
			logger.Error("failed to encode health response", "error", encodeErr)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) trustProxyHeaders() bool {
	return h.config != nil && h.config.TrustProxyHeaders
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "not found")
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
