package orders

import (
	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// Actor is the opaque identity+role pair handed in by the auth boundary.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// CreateOrderItemInput is one requested line before catalog resolution.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Qty       int
	Note      *string
}

// CreateOrderInput is everything order creation needs from the caller.
// Money fields are deliberately absent: prices come from the catalog.
type CreateOrderInput struct {
	RestaurantID    uuid.UUID
	CustomerID      *uuid.UUID
	Type            enums.OrderType
	DeliveryMethod  *enums.DeliveryMethod
	DeliveryAddress *string
	DeliveryZone    *string
	DeliveryLat     *float64
	DeliveryLng     *float64
	PaymentMethod   enums.PaymentMethod
	Note            *string
	Items           []CreateOrderItemInput
}

// RestaurantOrderFilters narrows the restaurant-facing listing.
type RestaurantOrderFilters struct {
	Status *enums.OrderStatus
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
