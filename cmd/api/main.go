package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iwanyu/marketplace-backend/api/routes"
	"github.com/iwanyu/marketplace-backend/internal/admin"
	"github.com/iwanyu/marketplace-backend/internal/auth"
	"github.com/iwanyu/marketplace-backend/internal/cart"
	"github.com/iwanyu/marketplace-backend/internal/catalog"
	"github.com/iwanyu/marketplace-backend/internal/orders"
	"github.com/iwanyu/marketplace-backend/internal/payments"
	product "github.com/iwanyu/marketplace-backend/internal/products"
	"github.com/iwanyu/marketplace-backend/internal/users"
	"github.com/iwanyu/marketplace-backend/internal/vendors"
	"github.com/iwanyu/marketplace-backend/pkg/auth/session"
	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/flutterwave"
	"github.com/iwanyu/marketplace-backend/pkg/idempotency"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/metrics"
	"github.com/iwanyu/marketplace-backend/pkg/migrate"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/redis"
	"github.com/iwanyu/marketplace-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(dbClient.DB(), cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Metrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			Gatherer: prometheus.DefaultGatherer,
		}, *services),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessions *session.Manager) (*routes.Services, error) {
	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	productsRepo := product.NewRepository(conn)
	categoriesRepo := catalog.NewCategoryRepository(conn)
	vendorsRepo := vendors.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessions,
		Hasher:         security.NewHasher(cfg.Password),
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return nil, err
	}

	catalogService, err := catalog.NewService(productsRepo, categoriesRepo)
	if err != nil {
		return nil, err
	}

	productService, err := product.NewService(productsRepo, dbClient, emitter, categoriesRepo)
	if err != nil {
		return nil, err
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productsRepo)
	if err != nil {
		return nil, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Carts:    cartRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Currency: cfg.Flutterwave.Currency,
	})
	if err != nil {
		return nil, err
	}

	gateway, err := flutterwave.NewFromConfig(cfg.Flutterwave)
	if err != nil {
		return nil, err
	}
	guard, err := idempotency.NewManager(redisClient, cfg.Flutterwave.WebhookDedupeTTL)
	if err != nil {
		return nil, err
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  emitter,
		Gateway: gateway,
		Guard:   guard,
		Config:  cfg.Flutterwave,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	vendorService, err := vendors.NewService(vendorsRepo, usersRepo, dbClient, emitter)
	if err != nil {
		return nil, err
	}

	adminService, err := admin.NewService(usersRepo, vendorsRepo, productsRepo, ordersRepo, cfg.Flutterwave.Currency)
	if err != nil {
		return nil, err
	}

	return &routes.Services{
		Auth:     authService,
		Catalog:  catalogService,
		Products: productService,
		Cart:     cartService,
		Orders:   orderService,
		Payments: paymentService,
		Vendors:  vendorService,
		Admin:    adminService,
	}, nil
}
