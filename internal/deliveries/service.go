package deliveries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

const positionTTL = 5 * time.Minute

// Service drives the courier side of fulfillment: claiming ready orders,
// the pickup/delivery transitions gated on claim ownership, and the
// best-effort location stream.
type Service interface {
	Claim(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error)
	Release(ctx context.Context, courierID, orderID uuid.UUID) error
	MarkPickedUp(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error)
	// UpdateLocation is fire-and-forget: samples for couriers with no order
	// in flight are dropped, and downstream failures never surface.
	UpdateLocation(ctx context.Context, courierID uuid.UUID, lat, lng float64)
	ListAvailable(ctx context.Context, params pagination.Params) (*orders.OrderList, error)
}

type broadcaster interface {
	Broadcast(ctx context.Context, eventType enums.OutboxEventType, occurredAt time.Time, payload any) error
}

type positionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CourierPositionKey(courierID string) string
}

type service struct {
	repo      orders.Repository
	orders    orders.Service
	bus       broadcaster
	positions positionStore
	logg      *logger.Logger
}

// NewService wires the delivery assignment service.
func NewService(repo orders.Repository, ordersSvc orders.Service, bus broadcaster, positions positionStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if bus == nil {
		return nil, fmt.Errorf("fanout bus required")
	}
	if positions == nil {
		return nil, fmt.Errorf("position store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		orders:    ordersSvc,
		bus:       bus,
		positions: positions,
		logg:      logg,
	}, nil
}

func (s *service) Claim(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error) {
	if courierID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id and order id required")
	}

	affected, err := s.repo.Claim(ctx, orderID, courierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
	}
	if affected == 0 {
		return nil, s.classifyFailedClaim(ctx, orderID, courierID)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// classifyFailedClaim distinguishes the loser of a claim race from plain
// bad requests.
func (s *service) classifyFailedClaim(ctx context.Context, orderID, courierID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.CourierID != nil {
		if *order.CourierID == courierID {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed by you")
		}
		return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed").
			WithDetails(map[string]any{"order_id": orderID.String()})
	}
	if order.Status != enums.OrderStatusReady {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s, only ready orders can be claimed", order.Status)
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed").
		WithDetails(map[string]any{"order_id": orderID.String()})
}

func (s *service) Release(ctx context.Context, courierID, orderID uuid.UUID) error {
	if courierID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id and order id required")
	}

	affected, err := s.repo.Release(ctx, orderID, courierID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release order")
	}
	if affected == 0 {
		order, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.New(pkgerrors.CodeNotAssigned, "not the assigned courier").
			WithDetails(map[string]any{"order_id": orderID.String()})
	}
	return nil
}

func (s *service) MarkPickedUp(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error) {
	if err := s.requireHolder(ctx, courierID, orderID); err != nil {
		return nil, err
	}
	actor := orders.Actor{ID: courierID, Role: enums.RoleCourier}
	return s.orders.Transition(ctx, actor, orderID, enums.OrderStatusReady, enums.OrderStatusOnTheWay)
}

func (s *service) MarkDelivered(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error) {
	if err := s.requireHolder(ctx, courierID, orderID); err != nil {
		return nil, err
	}
	actor := orders.Actor{ID: courierID, Role: enums.RoleCourier}
	return s.orders.Transition(ctx, actor, orderID, enums.OrderStatusOnTheWay, enums.OrderStatusDelivered)
}

func (s *service) requireHolder(ctx context.Context, courierID, orderID uuid.UUID) error {
	if courierID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id and order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.CourierID == nil || *order.CourierID != courierID {
		return pkgerrors.New(pkgerrors.CodeNotAssigned, "not the assigned courier").
			WithDetails(map[string]any{"order_id": orderID.String()})
	}
	return nil
}

func (s *service) UpdateLocation(ctx context.Context, courierID uuid.UUID, lat, lng float64) {
	if courierID == uuid.Nil {
		return
	}

	order, err := s.repo.FindActiveOrderForCourier(ctx, courierID)
	if err != nil {
		s.logg.Error(ctx, "location sample: load active order", err)
		return
	}
	if order == nil {
		// no order in flight, high-frequency stream drops silently
		return
	}

	event := payloads.CourierLocationEvent{
		OrderID:    order.ID,
		CourierID:  courierID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.bus.Broadcast(ctx, enums.EventCourierLocation, event.RecordedAt, event); err != nil {
		s.logg.Error(ctx, "location sample: broadcast", err)
	}

	if body, err := json.Marshal(event); err == nil {
		key := s.positions.CourierPositionKey(courierID.String())
		if err := s.positions.Set(ctx, key, body, positionTTL); err != nil {
			s.logg.Error(ctx, "location sample: cache position", err)
		}
	}

	if err := s.repo.UpdateCourierPosition(ctx, order.ID, lat, lng); err != nil {
		s.logg.Error(ctx, "location sample: persist last position", err)
	}
}

func (s *service) ListAvailable(ctx context.Context, params pagination.Params) (*orders.OrderList, error) {
	list, err := s.repo.ListReadyUnclaimed(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available orders")
	}
	return list, nil
}
