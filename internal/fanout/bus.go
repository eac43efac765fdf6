package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

// Envelope is the wire shape delivered to room subscribers.
type Envelope struct {
	Event      enums.OutboxEventType `json:"event"`
	OccurredAt time.Time             `json:"occurred_at"`
	Data       any                   `json:"data"`
}

type roomPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	RoomChannel(kind, id string) string
}

// Bus fans domain events out to redis pub/sub rooms. Delivery is best
// effort: the durable order record remains the source of truth, so a failed
// publish to one room must not block the others.
type Bus struct {
	redis roomPublisher
	logg  *logger.Logger
}

// NewBus wires a room fan-out bus.
func NewBus(redisClient roomPublisher, logg *logger.Logger) (*Bus, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Bus{redis: redisClient, logg: logg}, nil
}

// Broadcast delivers one event to every interested room. All rooms are
// attempted; the aggregated error reports any that failed.
func (b *Bus) Broadcast(ctx context.Context, eventType enums.OutboxEventType, occurredAt time.Time, payload any) error {
	rooms := eventRooms(eventType, payload)
	if len(rooms) == 0 {
		logCtx := b.logg.WithField(ctx, "event_type", eventType.String())
		b.logg.Warn(logCtx, "no rooms resolved for event, dropping")
		return nil
	}

	body, err := json.Marshal(Envelope{
		Event:      eventType,
		OccurredAt: occurredAt,
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("marshaling fanout envelope: %w", err)
	}

	var errs error
	for _, room := range rooms {
		channel := b.redis.RoomChannel(room.Kind, room.ID)
		if err := b.redis.Publish(ctx, channel, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errs
}

// ChannelFor exposes the concrete channel name for subscribe-side callers.
func (b *Bus) ChannelFor(room Room) string {
	return b.redis.RoomChannel(room.Kind, room.ID)
}
