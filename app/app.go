package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/User-Emin/kattenbak-sub003/internal/auth"
	"github.com/User-Emin/kattenbak-sub003/internal/cache"
	"github.com/User-Emin/kattenbak-sub003/internal/catalog"
	"github.com/User-Emin/kattenbak-sub003/internal/config"
	"github.com/User-Emin/kattenbak-sub003/internal/db"
	"github.com/User-Emin/kattenbak-sub003/internal/email"
	"github.com/User-Emin/kattenbak-sub003/internal/handlers"
	"github.com/User-Emin/kattenbak-sub003/internal/observability"
	"github.com/User-Emin/kattenbak-sub003/internal/payments"
	"github.com/User-Emin/kattenbak-sub003/internal/queue"
	"github.com/User-Emin/kattenbak-sub003/internal/ratelimit"
	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

const janitorInterval = time.Minute

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Limiter       ratelimit.Limiter
	Queue         queue.Queue
	Reconciler    *services.ReconciliationService
	Handlers      *handlers.Handlers

	cancel  context.CancelFunc
	workers *errgroup.Group
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	if enabled, err := observability.InitSentry(observability.SentryConfig{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	}); err != nil {
		logger.Warn("sentry disabled", "error", err)
	} else if enabled {
		logger.Info("sentry enabled")
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	a := &App{Config: cfg, Logger: logger}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.DB = database

	if err := db.Migrate(startupCtx, database); err != nil {
		a.Close()
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}
	a.CacheProvider = cacheProvider

	limiter, err := ratelimit.New(ratelimit.StoreConfig{
		Store:                 cfg.RateLimitStore,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	a.Limiter = limiter

	jobs, err := queue.New(queue.Config{
		Provider:     cfg.QueueProvider,
		BufferSize:   cfg.QueueBufferSize,
		Workers:      cfg.ReconcileWorkers,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
		KafkaGroupID: cfg.KafkaGroupID,
	}, logger.With("component", "queue"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.Queue = jobs

	gateway, err := payments.NewMollieClient(payments.MollieConfig{
		APIKey:  cfg.MollieAPIKey,
		BaseURL: cfg.MollieBaseURL,
		Timeout: cfg.MollieTimeout,
	}, logger.With("component", "mollie"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	authenticator, err := auth.NewAuthenticator(auth.Config{
		Secret:            cfg.JWTSecret,
		TTL:               cfg.JWTTTL,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider:     cfg.EmailProvider,
		From:         cfg.EmailFrom,
		APIKey:       cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}, logger.With("component", "email"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	emailSender, err := services.NewProviderEmailSender(emailProvider, services.ShopInfo{
		Name: cfg.ShopName,
		URL:  cfg.StorefrontURL(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email sender: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	returnStore := db.NewReturnStore(database)
	catalogStore := db.NewCatalogStore(database)

	catalogService := services.NewCatalogService(catalogStore, cacheProvider, logger.With("component", "catalog_service"))
	shipping := catalog.DefaultShipping
	if cfg.CatalogSeedFile != "" {
		seed, err := catalogService.SeedFromFile(startupCtx, cfg.CatalogSeedFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		if seed.Shop.Shipping != (catalog.ShippingConfig{}) {
			shipping = seed.Shop.Shipping
		}
		logger.Info("catalog seeded", "file", cfg.CatalogSeedFile, "products", len(seed.Products))
	}

	a.Reconciler = services.NewReconciliationService(orderStore, gateway, emailSender, logger.With("component", "reconciliation_service"))
	orderService := services.NewOrderService(orderStore, emailSender, logger.With("component", "order_service"))
	returnService := services.NewReturnService(returnStore, orderStore, emailSender, logger.With("component", "return_service"))
	checkoutService := services.NewCheckoutService(
		orderStore,
		catalogStore,
		gateway,
		catalog.NewPricer(shipping),
		cacheProvider,
		services.CheckoutConfig{
			RedirectURL: cfg.ReturnURL(),
			WebhookURL:  cfg.WebhookURL(),
		},
		logger.With("component", "checkout_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:   cfg,
		DB:       database,
		Orders:   orderService,
		Returns:  returnService,
		Checkout: checkoutService,
		Catalog:  catalogService,
		Auth:     authenticator,
		Limiter:  limiter,
		Queue:    jobs,
		Logger:   logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	a.Handlers = h

	return a, nil
}

// Start launches the background work: reconciliation workers and, for the
// memory limiter, the expired-window sweep.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	group, ctx := errgroup.WithContext(ctx)
	a.workers = group

	if memory, ok := a.Limiter.(*ratelimit.MemoryLimiter); ok {
		memory.StartJanitor(ctx, janitorInterval)
	}

	group.Go(func() error {
		a.Logger.Info("reconciliation workers starting", "provider", a.Config.QueueProvider, "workers", a.Config.ReconcileWorkers)
		return a.Queue.Consume(ctx, a.Reconciler.HandleJob)
	})
}

func (a *App) Close() {
	if a == nil {
		return
	}
	// Closing the queue lets workers drain buffered jobs before returning.
	if a.Queue != nil {
		closeResource(a.Logger, "queue", a.Queue)
	}
	if a.workers != nil {
		if err := a.workers.Wait(); err != nil {
			a.Logger.Warn("reconciliation workers stopped with error", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if closer, ok := a.Limiter.(io.Closer); ok {
		closeResource(a.Logger, "rate limiter", closer)
	}
	if a.CacheProvider != nil {
		closeResource(a.Logger, "cache provider", a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	observability.FlushSentry(2 * time.Second)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeResource(logger *slog.Logger, name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && logger != nil {
		logger.Warn("failed to close "+name, "error", err)
	}
}
