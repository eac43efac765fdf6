package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/metrics"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/idempotency"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/registry"
)

const roomFanoutConsumer = "room-fanout"

type broadcaster interface {
	Broadcast(ctx context.Context, eventType enums.OutboxEventType, occurredAt time.Time, payload any) error
}

// Consumer bridges published domain events into redis room channels. One
// consumer instance drains one subscription; run one per topic.
type Consumer struct {
	bus          broadcaster
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	metrics      *metrics.WorkerMetrics
}

// NewConsumer builds a room fan-out consumer for one subscription. Metrics
// may be nil; a nil receiver drops all observations.
func NewConsumer(bus broadcaster, subscription *pubsub.Subscriber, manager *idempotency.Manager, decoders *registry.DecoderRegistry, workerMetrics *metrics.WorkerMetrics, logg *logger.Logger) (*Consumer, error) {
	if bus == nil {
		return nil, fmt.Errorf("fanout bus required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if decoders == nil {
		return nil, fmt.Errorf("decoder registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		bus:          bus,
		subscription: subscription,
		idempotency:  manager,
		decoders:     decoders,
		logg:         logg,
		metrics:      workerMetrics,
	}, nil
}

// DefaultDecoders registers version 1 decoders for every event the rooms
// know how to route.
func DefaultDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventOrderCreated, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.OrderCreatedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	reg.Register(enums.EventOrderStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	reg.Register(enums.EventPaymentStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.PaymentStatusChangedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	reg.Register(enums.EventCommissionMaterialized, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.CommissionMaterializedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	reg.Register(enums.EventCourierLocation, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.CourierLocationEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	return reg
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// process classifies one message. Malformed messages are acked so they do
// not poison the subscription; transient failures release the idempotency
// marker and nack for redelivery.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType.String(),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, roomFanoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already fanned out")
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, roomFanoutConsumer, eventID)
		return processResult{ack: true}
	}

	if err := c.bus.Broadcast(ctx, eventType, envelope.OccurredAt, payload); err != nil {
		c.metrics.IncFailed(eventType.String())
		c.logg.Error(logCtx, "room broadcast failed", err)
		_ = c.idempotency.Delete(ctx, roomFanoutConsumer, eventID)
		return processResult{nack: true}
	}

	c.metrics.IncPublished(eventType.String())
	c.logg.Info(logCtx, "event fanned out to rooms")
	return processResult{ack: true}
}
