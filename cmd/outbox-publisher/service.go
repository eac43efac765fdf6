package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/metrics"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/registry"
)

const workerName = "outbox-publisher"

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(ctx context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publisherFactory hands out a publisher for a topic. Indirection keeps the
// batch loop testable without a live Pub/Sub connection.
type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// Service drains outbox_events and publishes each row to its registered
// topic. Rows that cannot ever publish are copied to outbox_dlq and pinned
// above the attempt ceiling so no replica picks them up again.
type Service struct {
	db             dbClient
	pubSub         pubSubClient
	repo           outboxRepository
	dlq            dlqRepository
	registry       registryResolver
	newPublisher   publisherFactory
	logg           *logger.Logger
	metrics        *metrics.WorkerMetrics
	batchSize      int
	pollInterval   time.Duration
	publishTimeout time.Duration
	maxAttempts    int
}

// ServiceParams wires the publisher's collaborators.
type ServiceParams struct {
	DB       dbClient
	PubSub   pubSubClient
	Repo     outboxRepository
	DLQ      dlqRepository
	Registry registryResolver
	Logger   *logger.Logger
	Config   config.OutboxConfig

	// Metrics is optional; a nil receiver drops all observations.
	Metrics *metrics.WorkerMetrics

	// PublisherFactory overrides the default GCP-backed factory in tests.
	PublisherFactory publisherFactory
}

// NewService validates params and applies config fallbacks.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	svc := &Service{
		db:             params.DB,
		pubSub:         params.PubSub,
		repo:           params.Repo,
		dlq:            params.DLQ,
		registry:       params.Registry,
		newPublisher:   params.PublisherFactory,
		logg:           params.Logger,
		metrics:        params.Metrics,
		batchSize:      batch,
		pollInterval:   time.Duration(pollMs) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
		maxAttempts:    maxAttempts,
	}
	if svc.newPublisher == nil {
		if params.PubSub == nil {
			return nil, errors.New("pubsub client is required")
		}
		svc.newPublisher = func(topic string) publisher {
			return gcpPublisher{inner: params.PubSub.Publisher(topic)}
		}
	}
	return svc, nil
}

// Run polls until the context is cancelled. Empty polls and transient
// failures back off exponentially with a little jitter so replicas do not
// hammer the table in lockstep.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_size":   s.batchSize,
		"poll_ms":      s.pollInterval.Milliseconds(),
		"max_attempts": s.maxAttempts,
	}), "outbox publisher started")

	delay := s.pollInterval
	for {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			delay = nextBackoff(delay, s.pollInterval)
		case processed == 0:
			delay = nextBackoff(delay, s.pollInterval)
		default:
			delay = s.pollInterval
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher stopping")
			return nil
		case <-time.After(withJitter(delay)):
		}
	}
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if s.pubSub != nil {
		if err := s.pubSub.Ping(ctx); err != nil {
			return fmt.Errorf("pubsub not ready: %w", err)
		}
	}
	return nil
}

// processBatch claims a page of rows with FOR UPDATE SKIP LOCKED and settles
// each one inside the same transaction: published, failed-retryable, or
// terminal. Returns how many rows were claimed.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveBatch(workerName, time.Since(start))
	}()

	var processed int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch unpublished: %w", err)
		}
		processed = len(events)

		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if handleErr := s.handleTerminal(ctx, tx, event, "unresolvable", err); handleErr != nil {
					return handleErr
				}
				continue
			}

			if err := s.publishResolved(ctx, event, resolved); err != nil {
				var nonRetry registry.NonRetryableError
				switch {
				case errors.As(err, &nonRetry):
					if handleErr := s.handleTerminal(ctx, tx, event, "non_retryable", err); handleErr != nil {
						return handleErr
					}
				case event.AttemptCount+1 >= s.maxAttempts:
					if handleErr := s.handleTerminal(ctx, tx, event, "max_attempts", err); handleErr != nil {
						return handleErr
					}
				default:
					s.metrics.IncFailed(event.EventType.String())
					s.logg.Warn(s.logg.WithFields(ctx, eventFields(event, map[string]any{
						"attempt": event.AttemptCount + 1,
					})), "outbox publish failed, will retry")
					if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
						return fmt.Errorf("mark failed: %w", markErr)
					}
				}
				continue
			}

			if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
				return fmt.Errorf("mark published: %w", err)
			}
			s.metrics.IncPublished(event.EventType.String())
			s.logg.Info(s.logg.WithFields(ctx, eventFields(event, map[string]any{
				"topic": resolved.Descriptor.Topic,
			})), "outbox event published")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// handleTerminal copies the row into outbox_dlq and pins it above the
// attempt ceiling, all inside the caller's transaction.
func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, cause error) error {
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		AttemptCount:  event.AttemptCount + 1,
		ErrorMessage:  dlqErrorMessage(reason, cause),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq entry: %w", err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal: %w", err)
	}
	s.metrics.IncDeadLettered(event.EventType.String())
	s.logg.Error(s.logg.WithFields(ctx, eventFields(event, map[string]any{
		"reason": reason,
	})), "outbox event moved to dlq", cause)
	return nil
}

func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub := s.newPublisher(resolved.Descriptor.Topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", resolved.Descriptor.Topic))
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       event.ID.String(),
			"event_type":     event.EventType.String(),
			"aggregate_type": event.AggregateType.String(),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish to %s: %w", resolved.Descriptor.Topic, err)
	}
	return nil
}

func dlqErrorMessage(reason string, cause error) *string {
	msg := reason
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", reason, cause.Error())
	}
	return &msg
}

func eventFields(event models.OutboxEvent, extra map[string]any) map[string]any {
	fields := map[string]any{
		"event_id":       event.ID.String(),
		"event_type":     event.EventType.String(),
		"aggregate_type": event.AggregateType.String(),
		"aggregate_id":   event.AggregateID.String(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func nextBackoff(current, floor time.Duration) time.Duration {
	next := current * 2
	if next < floor {
		next = floor
	}
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(jitterWindow)))
}

// gcpPublisher adapts *pubsub.Publisher to the publisher interface.
type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpPublishResult{inner: p.inner.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	inner *gcppubsub.PublishResult
}

func (r gcpPublishResult) Get(ctx context.Context) (string, error) {
	return r.inner.Get(ctx)
}
