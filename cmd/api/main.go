package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	webhookcontrollers "github.com/emersonbarrios/fooddash-backend/api/controllers/webhooks"
	"github.com/emersonbarrios/fooddash-backend/api/routes"
	"github.com/emersonbarrios/fooddash-backend/internal/catalog"
	"github.com/emersonbarrios/fooddash-backend/internal/commissions"
	"github.com/emersonbarrios/fooddash-backend/internal/deliveries"
	"github.com/emersonbarrios/fooddash-backend/internal/fanout"
	"github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/internal/payments"
	"github.com/emersonbarrios/fooddash-backend/internal/pricing"
	"github.com/emersonbarrios/fooddash-backend/internal/team"
	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/db"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/migrate"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/redis"
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

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	teamSvc, err := team.NewService(team.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create team service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, catalogSvc, pricing.NewZoneFeeResolver(cfg.Delivery))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	commissionsSvc, err := commissions.NewService(commissions.NewRepository(dbClient.DB()), dbClient, outboxSvc, teamSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create commissions service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, outboxSvc, commissionsSvc, gatewayClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	bus, err := fanout.NewBus(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fanout bus", err)
		os.Exit(1)
	}

	deliveriesSvc, err := deliveries.NewService(ordersRepo, ordersSvc, bus, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	webhookGuard := webhookcontrollers.NewGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL)

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
			dbClient,
			redisClient,
			gatewayClient,
			webhookGuard,
			ordersSvc,
			deliveriesSvc,
			paymentsSvc,
			commissionsSvc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
