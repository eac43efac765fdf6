package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/emersonbarrios/fooddash-backend/internal/fanout"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/pubsub"
	"github.com/emersonbarrios/fooddash-backend/pkg/redis"
)

// ServiceParams wires the fan-out worker's collaborators.
type ServiceParams struct {
	Logger             *logger.Logger
	Redis              *redis.Client
	PubSub             *pubsub.Client
	OrdersConsumer     *fanout.Consumer
	SettlementConsumer *fanout.Consumer
}

// Service runs one consumer per domain topic and fails fast when either
// stops unexpectedly.
type Service struct {
	logg               *logger.Logger
	redis              *redis.Client
	pubsub             *pubsub.Client
	ordersConsumer     *fanout.Consumer
	settlementConsumer *fanout.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.OrdersConsumer == nil {
		return nil, errors.New("orders consumer is required")
	}
	if params.SettlementConsumer == nil {
		return nil, errors.New("settlement consumer is required")
	}
	return &Service{
		logg:               params.Logger,
		redis:              params.Redis,
		pubsub:             params.PubSub,
		ordersConsumer:     params.OrdersConsumer,
		settlementConsumer: params.SettlementConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all fanout worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.ordersConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.settlementConsumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "fanout worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			return err
		}
		return err
	}
}
