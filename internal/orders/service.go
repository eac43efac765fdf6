package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/internal/catalog"
	"github.com/emersonbarrios/fooddash-backend/internal/pricing"
	"github.com/emersonbarrios/fooddash-backend/pkg/db"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

const maxTrackingAttempts = 5

// Service drives the order lifecycle: atomic creation with price snapshots
// and the role-gated fulfillment state machine.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, actor Actor, orderID uuid.UUID, expected, next enums.OrderStatus) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByTracking(ctx context.Context, trackingNumber string) (*models.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters RestaurantOrderFilters) (*OrderList, error)
	ListByCourier(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	catalog catalog.Service
	fees    pricing.FeeResolver
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, catalogSvc catalog.Service, fees pricing.FeeResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee resolver required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		catalog: catalogSvc,
		fees:    fees,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cat := s.catalog.WithTx(tx)

		restaurant, err := cat.GetRestaurant(ctx, input.RestaurantID)
		if err != nil {
			return err
		}
		if !restaurant.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "restaurant is not accepting orders").
				WithDetails(map[string]any{"restaurant_id": input.RestaurantID.String()})
		}

		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		quotes, err := cat.GetPrices(ctx, productIDs)
		if err != nil {
			return err
		}

		lines := make([]pricing.LineInput, 0, len(input.Items))
		for _, item := range input.Items {
			quote, ok := quotes[item.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "product not found").
					WithDetails(map[string]any{"product_id": item.ProductID.String()})
			}
			lines = append(lines, pricing.LineInput{
				ProductID:      quote.ProductID,
				Name:           quote.Name,
				UnitPriceCents: quote.UnitPriceCents,
				Qty:            item.Qty,
				Available:      quote.Available,
			})
		}

		quote, err := pricing.Calculate(lines, restaurant.CommissionRate, input.Type, input.DeliveryZone, s.fees)
		if err != nil {
			return err
		}

		order := buildOrder(input, quote)
		for i, line := range lines {
			order.Items = append(order.Items, models.OrderLineItem{
				ProductID:      line.ProductID,
				Name:           line.Name,
				UnitPriceCents: line.UnitPriceCents,
				Qty:            line.Qty,
				TotalCents:     pricing.LineTotalCents(line),
				Note:           input.Items[i].Note,
			})
		}

		if err := s.persistWithTracking(ctx, repo, order); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:                 order.ID,
				TrackingNumber:          order.TrackingNumber,
				RestaurantID:            order.RestaurantID,
				CustomerID:              order.CustomerID,
				Type:                    order.Type,
				SubtotalCents:           order.SubtotalCents,
				DeliveryFeeCents:        order.DeliveryFeeCents,
				PlatformCommissionCents: order.PlatformCommissionCents,
				TotalCents:              order.TotalCents,
				PaymentMethod:           order.PaymentMethod,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// persistWithTracking retries creation on tracking number collisions. The
// suffix space makes collisions rare; a handful of attempts is plenty.
func (s *service) persistWithTracking(ctx context.Context, repo Repository, order *models.Order) error {
	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		tracking, err := NewTrackingNumber(time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate tracking number")
		}
		order.TrackingNumber = tracking

		err = repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err, "ux_orders_tracking_number") {
			continue
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "could not allocate tracking number")
}

func (s *service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, expected, next enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !expected.IsValid() || !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if !IsLegalTransition(expected, next) {
		return nil, TransitionError(expected, next)
	}
	if !CanAdvanceStatus(actor.Role, expected, next) {
		return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s may not move an order from %s to %s", actor.Role, expected, next)
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.UpdateStatusCAS(ctx, orderID, expected, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if affected == 0 {
			return s.classifyStaleTransition(ctx, repo, orderID, expected, next)
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				TrackingNumber: order.TrackingNumber,
				RestaurantID:   order.RestaurantID,
				CustomerID:     order.CustomerID,
				CourierID:      order.CourierID,
				From:           expected,
				To:             next,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// classifyStaleTransition turns a zero-row CAS into the precise rejection:
// missing order, finalized order, or a concurrent writer winning the race.
func (s *service) classifyStaleTransition(ctx context.Context, repo Repository, orderID uuid.UUID, expected, next enums.OrderStatus) error {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status.IsTerminal() {
		return pkgerrors.Newf(pkgerrors.CodeOrderFinalized, "order already %s", order.Status).
			WithDetails(map[string]any{"status": order.Status.String()})
	}
	return pkgerrors.Newf(pkgerrors.CodeStaleStatus, "order status is %s, expected %s", order.Status, expected).
		WithDetails(map[string]any{
			"current":  order.Status.String(),
			"expected": expected.String(),
			"target":   next.String(),
		})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
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

func (s *service) GetByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	order, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters RestaurantOrderFilters) (*OrderList, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	list, err := s.repo.ListByRestaurant(ctx, restaurantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list restaurant orders")
	}
	return list, nil
}

func (s *service) ListByCourier(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if courierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	list, err := s.repo.ListByCourier(ctx, courierID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier orders")
	}
	return list, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order type")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item qty must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
	}
	if input.Type == enums.OrderTypeDelivery {
		if input.DeliveryMethod == nil || !input.DeliveryMethod.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery method required for delivery orders")
		}
		if input.DeliveryAddress == nil || *input.DeliveryAddress == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for delivery orders")
		}
	}
	return nil
}

func buildOrder(input CreateOrderInput, quote *pricing.Quote) *models.Order {
	return &models.Order{
		ID:                      uuid.New(),
		RestaurantID:            input.RestaurantID,
		CustomerID:              input.CustomerID,
		Type:                    input.Type,
		DeliveryMethod:          input.DeliveryMethod,
		DeliveryAddress:         input.DeliveryAddress,
		DeliveryZone:            input.DeliveryZone,
		DeliveryLat:             input.DeliveryLat,
		DeliveryLng:             input.DeliveryLng,
		SubtotalCents:           quote.SubtotalCents,
		DeliveryFeeCents:        quote.DeliveryFeeCents,
		PlatformCommissionCents: quote.PlatformCommissionCents,
		TotalCents:              quote.TotalCents,
		PaymentMethod:           input.PaymentMethod,
		PaymentStatus:           enums.PaymentStatusPending,
		Status:                  enums.OrderStatusReceived,
		Note:                    input.Note,
	}
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{ActorID: actor.ID, Role: actor.Role}
}
