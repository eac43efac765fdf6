package fanout

import (
	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
)

// Room kinds used to scope live event delivery. A room name is resolved to a
// concrete channel by the redis client's namespaced key builder.
const (
	RoomKindRestaurant = "restaurant"
	RoomKindCustomer   = "customer"
	RoomKindCourier    = "courier"
	RoomKindOrder      = "order"
	RoomKindAdmin      = "admin"
)

// AdminRoomID is the single shared admin firehose room.
const AdminRoomID = "all"

// Room is one delivery target.
type Room struct {
	Kind string
	ID   string
}

func restaurantRoom(id uuid.UUID) Room { return Room{Kind: RoomKindRestaurant, ID: id.String()} }
func customerRoom(id uuid.UUID) Room   { return Room{Kind: RoomKindCustomer, ID: id.String()} }
func courierRoom(id uuid.UUID) Room    { return Room{Kind: RoomKindCourier, ID: id.String()} }
func orderRoom(id uuid.UUID) Room      { return Room{Kind: RoomKindOrder, ID: id.String()} }
func adminRoom() Room                  { return Room{Kind: RoomKindAdmin, ID: AdminRoomID} }

// RoomsForOrderCreated targets the parties who care about a brand new order.
func RoomsForOrderCreated(event payloads.OrderCreatedEvent) []Room {
	rooms := []Room{restaurantRoom(event.RestaurantID), orderRoom(event.OrderID), adminRoom()}
	if event.CustomerID != nil {
		rooms = append(rooms, customerRoom(*event.CustomerID))
	}
	return rooms
}

// RoomsForStatusChanged targets everyone tracking the order's fulfillment.
func RoomsForStatusChanged(event payloads.OrderStatusChangedEvent) []Room {
	rooms := []Room{restaurantRoom(event.RestaurantID), orderRoom(event.OrderID), adminRoom()}
	if event.CustomerID != nil {
		rooms = append(rooms, customerRoom(*event.CustomerID))
	}
	if event.CourierID != nil {
		rooms = append(rooms, courierRoom(*event.CourierID))
	}
	return rooms
}

// RoomsForPaymentChanged targets the financial parties; couriers are not
// told about money.
func RoomsForPaymentChanged(event payloads.PaymentStatusChangedEvent) []Room {
	rooms := []Room{restaurantRoom(event.RestaurantID), orderRoom(event.OrderID), adminRoom()}
	if event.CustomerID != nil {
		rooms = append(rooms, customerRoom(*event.CustomerID))
	}
	return rooms
}

// RoomsForCommissionMaterialized is admin-only: ledger internals never reach
// customers or restaurants.
func RoomsForCommissionMaterialized(event payloads.CommissionMaterializedEvent) []Room {
	return []Room{adminRoom()}
}

// RoomsForCourierLocation scopes the position stream to the order being
// tracked.
func RoomsForCourierLocation(event payloads.CourierLocationEvent) []Room {
	return []Room{orderRoom(event.OrderID)}
}

// eventRooms dispatches on the payload type already decoded by the caller.
func eventRooms(eventType enums.OutboxEventType, payload any) []Room {
	switch data := payload.(type) {
	case payloads.OrderCreatedEvent:
		return RoomsForOrderCreated(data)
	case payloads.OrderStatusChangedEvent:
		return RoomsForStatusChanged(data)
	case payloads.PaymentStatusChangedEvent:
		return RoomsForPaymentChanged(data)
	case payloads.CommissionMaterializedEvent:
		return RoomsForCommissionMaterialized(data)
	case payloads.CourierLocationEvent:
		return RoomsForCourierLocation(data)
	default:
		return nil
	}
}
