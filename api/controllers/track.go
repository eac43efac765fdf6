package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	"github.com/emersonbarrios/fooddash-backend/api/validators"
	"github.com/emersonbarrios/fooddash-backend/internal/fanout"
	internalorders "github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

const (
	trackWriteTimeout = 10 * time.Second
	trackPingInterval = 30 * time.Second
)

var trackUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin enforcement happens at the CORS layer; the socket endpoint is
	// public read-only order state.
	CheckOrigin: func(*http.Request) bool { return true },
}

type roomSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *goredis.PubSub
	RoomChannel(kind, id string) string
	Get(ctx context.Context, key string) (string, error)
	CourierPositionKey(courierID string) string
}

// TrackOrderSocket upgrades to a websocket and streams the order's room
// events (status moves, payment changes, courier positions) as they fan out.
func TrackOrderSocket(svc internalorders.Service, sub roomSubscriber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		conn, err := trackUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote its own error response.
			logg.Error(ctx, "websocket upgrade failed", err)
			return
		}
		defer conn.Close()

		logCtx := logg.WithOrderID(ctx, orderID.String())

		// Initial snapshot: current order state, plus the courier's cached
		// position when one is on the road.
		if err := writeSocketJSON(conn, map[string]any{"event": "snapshot", "data": order}); err != nil {
			return
		}
		if order.CourierID != nil {
			if cached, err := sub.Get(ctx, sub.CourierPositionKey(order.CourierID.String())); err == nil && cached != "" {
				if err := conn.SetWriteDeadline(time.Now().Add(trackWriteTimeout)); err == nil {
					_ = conn.WriteMessage(websocket.TextMessage, []byte(cached))
				}
			}
		}

		channel := sub.RoomChannel(fanout.RoomKindOrder, orderID.String())
		pubsub := sub.Subscribe(ctx, channel)
		defer pubsub.Close()

		// Drain client frames so pong handling keeps the connection alive;
		// incoming data is ignored.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(trackPingInterval)
		defer ticker.Stop()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-clientGone:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(trackWriteTimeout)); err != nil {
					return
				}
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(trackWriteTimeout)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					if !errors.Is(err, websocket.ErrCloseSent) {
						logg.Error(logCtx, "tracking socket write failed", err)
					}
					return
				}
			}
		}
	}
}

func writeSocketJSON(conn *websocket.Conn, payload any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(trackWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(payload)
}
