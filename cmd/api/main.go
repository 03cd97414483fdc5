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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/bookhaven/storefront-backend/api/routes"
	cartsvc "github.com/bookhaven/storefront-backend/internal/cart"
	checkoutsvc "github.com/bookhaven/storefront-backend/internal/checkout"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	ordersvc "github.com/bookhaven/storefront-backend/internal/orders"
	verificationsvc "github.com/bookhaven/storefront-backend/internal/verification"
	paystackwebhook "github.com/bookhaven/storefront-backend/internal/webhooks/paystack"
	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/db"
	"github.com/bookhaven/storefront-backend/pkg/docstore"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/mailer"
	"github.com/bookhaven/storefront-backend/pkg/metrics"
	"github.com/bookhaven/storefront-backend/pkg/migrate"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
	"github.com/bookhaven/storefront-backend/pkg/redis"
	"github.com/bookhaven/storefront-backend/pkg/verify"
)

const webhookIdempotencyTTL = 24 * time.Hour

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

	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error closing resources", closeErr)
		}
	}()

	var (
		dbClient   *db.Client
		ordersRepo ordersvc.Store
		alertStore notifications.AlertStore
	)
	switch cfg.Orders.Driver {
	case config.OrdersDriverPostgres:
		dbClient, err = db.New(context.Background(), cfg.DB, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)

		if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
			logg.Error(context.Background(), "failed to run dev migrations", err)
			os.Exit(1)
		}

		ordersRepo = ordersvc.NewRepository(dbClient.DB())
		alertStore = notifications.NewAlertRepository(dbClient.DB())
	case config.OrdersDriverHosted:
		docClient, docErr := docstore.NewClient(cfg.Docstore, logg)
		if docErr != nil {
			logg.Error(context.Background(), "failed to bootstrap document store", docErr)
			os.Exit(1)
		}
		ordersRepo, err = ordersvc.NewHostedStore(docClient, cfg.Docstore.Table)
		if err != nil {
			logg.Error(context.Background(), "failed to create hosted orders store", err)
			os.Exit(1)
		}
	default:
		logg.Error(context.Background(), "unknown orders driver", errors.New(cfg.Orders.Driver))
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	closers = append(closers, redisClient.Close)

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}
	widget := paystack.NewWidget(cfg.Paystack.ScriptURL)

	if err := mailer.Validate(cfg.Mailer); err != nil {
		logg.Error(context.Background(), "invalid mailer config", err)
		os.Exit(1)
	}
	adminMailer := mailer.New(cfg.Mailer, logg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	cartRepo, err := cartsvc.NewRepository(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart repository", err)
		os.Exit(1)
	}
	cartService, err := cartsvc.NewService(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	noticePublisher := notifications.NewService(alertStore, logg)

	verificationService, err := verificationsvc.NewService(paystackClient, ordersRepo, adminMailer, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	verifyClient := verify.NewClient(cfg.Verify, logg)

	checkoutService, err := checkoutsvc.NewService(
		checkoutsvc.NewConfig(cfg),
		cartService,
		ordersRepo,
		widget,
		verifyClient,
		redisClient,
		noticePublisher,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "paystack")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := paystackwebhook.NewService(verificationService, webhookGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"orders_driver": cfg.Orders.Driver,
		"verify":        cfg.Verify.Configured(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			CartService:     cartService,
			CheckoutService: checkoutService,
			VerifyService:   verificationService,
			OrdersStore:     ordersRepo,
			AlertStore:      alertStore,
			PaystackClient:  paystackClient,
			WebhookService:  webhookService,
			Registry:        registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			_ = server.Close()
		}
	}
}
