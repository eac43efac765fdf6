package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/registry"
	"github.com/rs/zerolog"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (r *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(r.events) == 0 {
		return nil, nil
	}
	if limit > len(r.events) {
		limit = len(r.events)
	}
	batch := r.events[:limit]
	r.events = r.events[limit:]
	return batch, nil
}

func (r *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	r.terminal = append(r.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (d *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	d.entries = append(d.entries, entry)
	return nil
}

type fakeRegistry struct {
	resolveErr map[uuid.UUID]error
}

func (r *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if err, ok := r.resolveErr[event.ID]; ok {
		return nil, err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         "orders-events",
		},
	}, nil
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

// fakePublisher pops one queued result per Publish call and falls back to
// success when the queue is empty.
type fakePublisher struct {
	results  []fakeResult
	messages []*gcppubsub.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if len(p.results) == 0 {
		return fakeResult{}
	}
	next := p.results[0]
	p.results = p.results[1:]
	return next
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func newTestService(t *testing.T, repo *fakeRepo, dlq *fakeDLQ, reg *fakeRegistry, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:       fakeDB{},
		Repo:     repo,
		DLQ:      dlq,
		Registry: reg,
		Logger:   testLogger(),
		Config:   config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
		PublisherFactory: func(string) publisher {
			return pub
		},
	})
	require.NoError(t, err)
	return svc
}

func outboxEvent(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":"v1"}`),
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	_, err = NewService(ServiceParams{
		DB:       fakeDB{},
		Repo:     &fakeRepo{},
		DLQ:      &fakeDLQ{},
		Registry: &fakeRegistry{},
		Logger:   testLogger(),
	})
	assert.EqualError(t, err, "pubsub client is required")
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, &fakeDLQ{}, &fakeRegistry{}, pub)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.published)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, []byte(event.Payload), msg.Data)
	assert.Equal(t, event.ID.String(), msg.Attributes["event_id"])
	assert.Equal(t, "order.created", msg.Attributes["event_type"])
}

func TestProcessBatchContinuesAfterRetryableFailure(t *testing.T) {
	failing := outboxEvent(0)
	healthy := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{failing, healthy}}
	pub := &fakePublisher{results: []fakeResult{{err: errors.New("transient")}, {}}}
	svc := newTestService(t, repo, &fakeDLQ{}, &fakeRegistry{}, pub)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, []uuid.UUID{failing.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{healthy.ID}, repo.published)
	assert.Empty(t, repo.terminal)
}

func TestProcessBatchDLQOnUnresolvable(t *testing.T) {
	event := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	reg := &fakeRegistry{resolveErr: map[uuid.UUID]error{
		event.ID: registry.NewNonRetryableError(errors.New("unsupported event type")),
	}}
	svc := newTestService(t, repo, dlq, reg, &fakePublisher{})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, event.Payload, entry.Payload)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "unresolvable")
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.published)
}

func TestProcessBatchDLQOnNonRetryablePublish(t *testing.T) {
	event := outboxEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{results: []fakeResult{
		{err: registry.NewNonRetryableError(errors.New("schema rejected"))},
	}}
	svc := newTestService(t, repo, dlq, &fakeRegistry{}, pub)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	require.NotNil(t, dlq.entries[0].ErrorMessage)
	assert.Contains(t, *dlq.entries[0].ErrorMessage, "non_retryable")
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchDLQOnMaxAttempts(t *testing.T) {
	// maxAttempts is 3 in newTestService, so a row already at 2 attempts
	// goes terminal on its next failure.
	event := outboxEvent(2)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{results: []fakeResult{{err: errors.New("still down")}}}
	svc := newTestService(t, repo, dlq, &fakeRegistry{}, pub)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	assert.Equal(t, 3, entry.AttemptCount)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "max_attempts")
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	floor := 500 * time.Millisecond
	d := floor
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, floor)
	}
	assert.Equal(t, maxBackoff, d)
}
