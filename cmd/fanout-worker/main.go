package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emersonbarrios/fooddash-backend/internal/fanout"
	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/metrics"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/idempotency"
	"github.com/emersonbarrios/fooddash-backend/pkg/pubsub"
	"github.com/emersonbarrios/fooddash-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "fanout-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "fanout-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis client", err)
		}
	}()

	pubSubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to create pubsub client", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubSubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	bus, err := fanout.NewBus(redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to build fanout bus", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to build idempotency manager", err)
		os.Exit(1)
	}

	decoders := fanout.DefaultDecoders()
	workerMetrics := metrics.NewWorkerMetrics(prometheus.DefaultRegisterer)

	ordersConsumer, err := fanout.NewConsumer(bus, pubSubClient.OrdersSubscription(), manager, decoders, workerMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to build orders consumer", err)
		os.Exit(1)
	}
	settlementConsumer, err := fanout.NewConsumer(bus, pubSubClient.SettlementSubscription(), manager, decoders, workerMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to build settlement consumer", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, logg, cfg.App.MetricsPort)

	svc, err := NewService(ServiceParams{
		Logger:             logg,
		Redis:              redisClient,
		PubSub:             pubSubClient,
		OrdersConsumer:     ordersConsumer,
		SettlementConsumer: settlementConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to build fanout worker", err)
		os.Exit(1)
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "fanout worker exited with error", err)
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}
