package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order with its frozen money snapshot.
type OrderCreatedEvent struct {
	OrderID                 uuid.UUID            `json:"order_id"`
	TrackingNumber          string               `json:"tracking_number"`
	RestaurantID            uuid.UUID            `json:"restaurant_id"`
	CustomerID              *uuid.UUID           `json:"customer_id,omitempty"`
	Type                    enums.OrderType      `json:"type"`
	SubtotalCents           int64                `json:"subtotal_cents"`
	DeliveryFeeCents        int64                `json:"delivery_fee_cents"`
	PlatformCommissionCents int64                `json:"platform_commission_cents"`
	TotalCents              int64                `json:"total_cents"`
	PaymentMethod           enums.PaymentMethod  `json:"payment_method"`
}

// OrderStatusChangedEvent is emitted on every fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	TrackingNumber string            `json:"tracking_number"`
	RestaurantID   uuid.UUID         `json:"restaurant_id"`
	CustomerID     *uuid.UUID        `json:"customer_id,omitempty"`
	CourierID      *uuid.UUID        `json:"courier_id,omitempty"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
}

// PaymentStatusChangedEvent reports gateway reconciliation results.
type PaymentStatusChangedEvent struct {
	OrderID           uuid.UUID           `json:"order_id"`
	RestaurantID      uuid.UUID           `json:"restaurant_id"`
	CustomerID        *uuid.UUID          `json:"customer_id,omitempty"`
	ExternalPaymentID string              `json:"external_payment_id"`
	From              enums.PaymentStatus `json:"from"`
	To                enums.PaymentStatus `json:"to"`
	AmountCents       int64               `json:"amount_cents"`
	FailureReason     string              `json:"failure_reason,omitempty"`
}

// CommissionMaterializedEvent surfaces the per-member ledger entries written
// when the order's revenue is recognized.
type CommissionMaterializedEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	RestaurantID uuid.UUID          `json:"restaurant_id"`
	PoolCents    int64              `json:"pool_cents"`
	Entries      []CommissionEntry  `json:"entries"`
}

// CommissionEntry is one member's share within a materialized pool.
type CommissionEntry struct {
	RecordID    uuid.UUID `json:"record_id"`
	MemberID    uuid.UUID `json:"member_id"`
	Percentage  float64   `json:"percentage"`
	AmountCents int64     `json:"amount_cents"`
}

// CourierLocationEvent carries a courier position sample for live tracking.
type CourierLocationEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CourierID  uuid.UUID `json:"courier_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}
