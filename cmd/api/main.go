package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pfstore/storefront-backend/api/controllers"
	"github.com/pfstore/storefront-backend/api/routes"
	internalauth "github.com/pfstore/storefront-backend/internal/auth"
	"github.com/pfstore/storefront-backend/internal/cart"
	"github.com/pfstore/storefront-backend/internal/catalog"
	"github.com/pfstore/storefront-backend/internal/coupons"
	"github.com/pfstore/storefront-backend/internal/ledger"
	"github.com/pfstore/storefront-backend/internal/notifications"
	"github.com/pfstore/storefront-backend/internal/orders"
	"github.com/pfstore/storefront-backend/internal/payments"
	"github.com/pfstore/storefront-backend/internal/shipping"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/db"
	"github.com/pfstore/storefront-backend/pkg/logger"
	"github.com/pfstore/storefront-backend/pkg/metrics"
	"github.com/pfstore/storefront-backend/pkg/migrate"
	"github.com/pfstore/storefront-backend/pkg/pubsub"
	"github.com/pfstore/storefront-backend/pkg/redis"
)

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

	var notifier notifications.Publisher = notifications.NopPublisher{}
	if cfg.Flags.Notifications && cfg.GCP.ProjectID != "" {
		pubsubClient, perr := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if perr != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", perr)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notifier, err = notifications.NewPublisher(pubsubClient.NotificationPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notifications publisher", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	couponsRepo := coupons.NewRepository(dbClient.DB())
	shippingRepo := shipping.NewRepository(dbClient.DB())
	accountsRepo := internalauth.NewRepository(dbClient.DB())

	authService, err := internalauth.NewService(accountsRepo, cfg.JWT, cfg.Pass)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(couponsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, catalogRepo, couponsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	shippingService, err := shipping.NewService(shippingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		ordersRepo,
		dbClient,
		catalogRepo,
		cartRepo,
		couponsService,
		ledgerService,
		shippingService,
		notifier,
		orderMetrics,
		logg,
		cfg.Shop,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewGateway(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		paymentsRepo,
		ordersRepo,
		dbClient,
		redisClient,
		gateway,
		notifier,
		orderMetrics,
		logg,
		cfg.Gateway,
		cfg.Shop,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			registry,
			routes.Services{
				Auth:     authService,
				Cart:     cartService,
				Orders:   ordersService,
				Payments: paymentsService,
				Ledger:   ledgerService,
				Shipping: shippingService,
			},
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
