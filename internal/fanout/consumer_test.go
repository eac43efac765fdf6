package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/idempotency"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
)

type fakeIdempotencyStore struct {
	seen     map[string]bool
	setNXErr error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: map[string]bool{}}
}

func (s *fakeIdempotencyStore) Get(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.setNXErr != nil {
		return false, s.setNXErr
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "fd:idempotency:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

type captureBroadcaster struct {
	calls []enums.OutboxEventType
	err   error
}

func (b *captureBroadcaster) Broadcast(_ context.Context, eventType enums.OutboxEventType, _ time.Time, _ any) error {
	if b.err != nil {
		return b.err
	}
	b.calls = append(b.calls, eventType)
	return nil
}

func consumerTestLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "fanout-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
}

func testConsumer(t *testing.T, bus *captureBroadcaster, store *fakeIdempotencyStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		bus:         bus,
		idempotency: manager,
		decoders:    DefaultDecoders(),
		logg:        consumerTestLogger(),
	}
}

func statusChangedMessage(t *testing.T, eventID uuid.UUID) *pubsub.Message {
	t.Helper()
	payload, err := json.Marshal(payloads.OrderStatusChangedEvent{
		OrderID:        uuid.New(),
		TrackingNumber: "FD-20260829-QX41",
		RestaurantID:   uuid.New(),
		From:           enums.OrderStatusReceived,
		To:             enums.OrderStatusPreparing,
	})
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   "m-1",
		Data: body,
		Attributes: map[string]string{
			"event_type": enums.EventOrderStatusChanged.String(),
		},
	}
}

func TestProcessBroadcastsOnce(t *testing.T) {
	bus := &captureBroadcaster{}
	consumer := testConsumer(t, bus, newFakeIdempotencyStore())
	msg := statusChangedMessage(t, uuid.New())

	first := consumer.process(context.Background(), msg)
	assert.True(t, first.ack)
	assert.False(t, first.nack)

	second := consumer.process(context.Background(), msg)
	assert.True(t, second.ack)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderStatusChanged}, bus.calls)
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	bus := &captureBroadcaster{}
	consumer := testConsumer(t, bus, newFakeIdempotencyStore())

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:         "m-2",
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": "order.status_changed"},
	})

	assert.True(t, result.ack)
	assert.Empty(t, bus.calls)
}

func TestProcessNacksAndReleasesOnBroadcastFailure(t *testing.T) {
	store := newFakeIdempotencyStore()
	bus := &captureBroadcaster{err: errors.New("redis unavailable")}
	consumer := testConsumer(t, bus, store)
	msg := statusChangedMessage(t, uuid.New())

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)

	// The marker was released, so redelivery reaches the bus again.
	bus.err = nil
	retry := consumer.process(context.Background(), msg)
	assert.True(t, retry.ack)
	assert.Len(t, bus.calls, 1)
}

func TestProcessNacksWhenIdempotencyStoreDown(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.setNXErr = errors.New("connection refused")
	bus := &captureBroadcaster{}
	consumer := testConsumer(t, bus, store)

	result := consumer.process(context.Background(), statusChangedMessage(t, uuid.New()))
	assert.True(t, result.nack)
	assert.Empty(t, bus.calls)
}
