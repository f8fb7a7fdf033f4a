package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/User-Emin/kattenbak-sub003/internal/config"
	"github.com/User-Emin/kattenbak-sub003/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler is the full middleware and route stack.
func (s *Server) Handler() http.Handler {
	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	return corsMiddleware(s.buildRouter())
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.Recoverer)
	r.Use(h.Metrics)
	r.Use(h.SecurityHeaders)
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET").Name("metrics")

	// Webhooks are not rate limited.
	r.HandleFunc("/webhooks/mollie", h.MollieWebhook).Methods("POST").Name("webhooks.mollie")
	r.HandleFunc("/webhooks/myparcel", h.MyParcelWebhook).Methods("POST").Name("webhooks.myparcel")

	login := r.PathPrefix("/api/auth").Subrouter()
	login.Use(h.LoginRateLimit)
	login.HandleFunc("/login", h.Login).Methods("POST").Name("auth.login")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.APIRateLimit)

	// Public storefront routes
	api.HandleFunc("/categories", h.ListCategories).Methods("GET").Name("catalog.categories")
	api.HandleFunc("/products", h.ListProducts).Methods("GET").Name("catalog.products")
	api.HandleFunc("/products/{slug}", h.GetProduct).Methods("GET").Name("catalog.product")
	api.HandleFunc("/payment-methods", h.PaymentMethods).Methods("GET").Name("checkout.payment_methods")
	api.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("checkout.create")
	api.HandleFunc("/orders/{id}/status", h.OrderStatus).Methods("GET").Name("checkout.order_status")
	api.HandleFunc("/returns", h.CreateReturn).Methods("POST").Name("returns.create")

	// Admin routes
	s.mountAdmin(api.NewRoute().Subrouter(), "api.")

	// The order and return admin endpoints are also served without the /api prefix.
	bare := r.NewRoute().Subrouter()
	bare.Use(h.APIRateLimit)
	bare.Use(h.RequireAdmin)
	mountOrdersAndReturns(bare, h, "")

	return r
}

func (s *Server) mountAdmin(admin *mux.Router, prefix string) {
	h := s.handlers
	admin.Use(h.RequireAdmin)
	mountOrdersAndReturns(admin, h, prefix)

	admin.HandleFunc("/admin/categories", h.CreateCategory).Methods("POST").Name(prefix + "admin.categories.create")
	admin.HandleFunc("/admin/categories/{id}", h.UpdateCategory).Methods("PUT").Name(prefix + "admin.categories.update")
	admin.HandleFunc("/admin/categories/{id}", h.DeleteCategory).Methods("DELETE").Name(prefix + "admin.categories.delete")
	admin.HandleFunc("/admin/products", h.CreateProduct).Methods("POST").Name(prefix + "admin.products.create")
	admin.HandleFunc("/admin/products/{id}", h.UpdateProduct).Methods("PUT").Name(prefix + "admin.products.update")
	admin.HandleFunc("/admin/products/{id}", h.DeleteProduct).Methods("DELETE").Name(prefix + "admin.products.delete")
	admin.HandleFunc("/admin/products/{id}/variants", h.CreateVariant).Methods("POST").Name(prefix + "admin.variants.create")
	admin.HandleFunc("/admin/variants/{id}", h.UpdateVariant).Methods("PUT").Name(prefix + "admin.variants.update")
	admin.HandleFunc("/admin/variants/{id}", h.DeleteVariant).Methods("DELETE").Name(prefix + "admin.variants.delete")
}

func mountOrdersAndReturns(r *mux.Router, h *handlers.Handlers, prefix string) {
	r.HandleFunc("/orders", h.ListOrders).Methods("GET").Name(prefix + "orders.list")
	r.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name(prefix + "orders.get")
	r.HandleFunc("/orders/{id}", h.UpdateOrder).Methods("PUT").Name(prefix + "orders.update")
	r.HandleFunc("/returns", h.ListReturns).Methods("GET").Name(prefix + "returns.list")
	r.HandleFunc("/returns/{id}", h.GetReturn).Methods("GET").Name(prefix + "returns.get")
	r.HandleFunc("/returns/{id}", h.UpdateReturn).Methods("PUT").Name(prefix + "returns.update")
}
