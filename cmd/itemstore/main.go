package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/api/handlers"
	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/cache"
	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"github.com/aaravmahajanofficial/itemstore/internal/health"
	"github.com/aaravmahajanofficial/itemstore/internal/metrics"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/aaravmahajanofficial/itemstore/internal/repositories/memory"
	service "github.com/aaravmahajanofficial/itemstore/internal/services"
	"github.com/aaravmahajanofficial/itemstore/internal/telemetry"
	"github.com/aaravmahajanofficial/itemstore/pkg/billing"
	"github.com/aaravmahajanofficial/itemstore/pkg/sendgrid"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// backends holds the ledger and the redis client behind carts and rate limiting.
type backends struct {
	repos     *repository.Repository
	redis     *redis.Client
	endpoints health.Endpoints
	close     func()
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		repos, err := repository.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("error accessing the database: %w", err)
		}

		if cfg.Storage.AutoMigrate {
			if err := repository.Migrate(repos.DB); err != nil {
				repos.Close()
				return nil, err
			}
		}

		client, err := repository.NewRedisClient(ctx, cfg)
		if err != nil {
			repos.Close()
			return nil, fmt.Errorf("error accessing the redis instance: %w", err)
		}

		return &backends{
			repos: repos,
			redis: client,
			endpoints: health.Endpoints{
				PostgresDSN: cfg.Database.GetDSN(),
				RedisDSN:    cfg.RedisConnect.GetDSN(),
			},
			close: func() {
				if err := repos.Close(); err != nil {
					slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
				}
				client.Close()
			},
		}, nil

	case "memory":
		// embedded redis never expires keys on its own clock, so guest carts live until restart
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		return &backends{
			repos:     memory.NewStore().Repository(),
			redis:     client,
			endpoints: health.Endpoints{RedisDSN: "redis://" + mr.Addr()},
			close: func() {
				client.Close()
				mr.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newGateway(cfg *config.Config) billing.Gateway {
	if cfg.Stripe.APIKey == "" {
		slog.Warn("No Stripe key configured, using the in-process payment gateway")
		return billing.NewFakeGateway()
	}

	return billing.NewStripeGateway(cfg.Stripe.APIKey, cfg.Stripe.Currency)
}

func newReceiptSender(cfg *config.Config) service.ReceiptSender {
	if cfg.SendGrid.APIKey == "" {
		slog.Warn("No SendGrid key configured, receipts are disabled")
		return nil
	}

	return service.NewEmailReceiptSender(sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName))
}

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Otel)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("❌ Error opening storage", slog.String("driver", cfg.Storage.Driver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer b.close()

	sessions := cache.NewRedisCache(b.redis, cfg.Cache)
	limiter := repository.NewRateLimitRepo(b.redis, cfg.RateConfig)
	gateway := newGateway(cfg)
	b.endpoints.Stripe = cfg.Stripe.APIKey != ""

	ledgerService := service.NewLedgerService(b.repos.Items)
	allocationService := service.NewAllocationService(b.repos.Items)
	productService := service.NewProductService(b.repos.Products, ledgerService)
	cartService := service.NewCartService(b.repos.Carts, sessions, productService, cfg.Cache.GuestCartTTL)
	checkoutService := service.NewCheckoutService(productService, allocationService, cartService, gateway, newReceiptSender(cfg))
	orderService := service.NewOrderService(b.repos.Orders, allocationService)

	productHandler := handlers.NewProductHandler(productService, ledgerService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)

	authMiddleware := middleware.NewAuthMiddleware([]byte(cfg.Security.JWTKey), cartService)
	checkoutLimit := middleware.RateLimit(limiter)

	healthHandler, err := health.NewHealthHandler(cfg, b.endpoints)
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("driver", cfg.Storage.Driver), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("POST /api/v1/products", authMiddleware.Authenticate(productHandler.CreateProduct()))
	routerMux.HandleFunc("DELETE /api/v1/products/{id}", authMiddleware.Authenticate(productHandler.RemoveProduct()))
	routerMux.HandleFunc("GET /api/v1/products/{id}/items", authMiddleware.Authenticate(productHandler.GetStock()))
	routerMux.HandleFunc("POST /api/v1/products/{id}/items", authMiddleware.Authenticate(productHandler.AddItems()))
	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Identify(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Identify(cartHandler.AddItem()))
	routerMux.HandleFunc("POST /api/v1/checkout", authMiddleware.Identify(checkoutLimit(checkoutHandler.Checkout())))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("POST /api/v1/orders/{id}/cancel", authMiddleware.Authenticate(orderHandler.CancelOrder()))
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /health", healthHandler.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "itemstore")

	// Setup http server
	server := http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("⚠️ Trace exporter shutdown failed", slog.String("error", err.Error()))
	}
}
