package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// Order is the central aggregate: one financial transaction driven through
// the fulfillment state machine. Money fields are snapshots taken at
// creation; totals are never recomputed from the catalog afterwards.
type Order struct {
	ID                      uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TrackingNumber          string               `gorm:"column:tracking_number;not null;uniqueIndex:ux_orders_tracking_number"`
	RestaurantID            uuid.UUID            `gorm:"column:restaurant_id;type:uuid;not null"`
	CustomerID              *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	Type                    enums.OrderType      `gorm:"column:type;type:text;not null"`
	DeliveryMethod          *enums.DeliveryMethod `gorm:"column:delivery_method;type:text"`
	DeliveryAddress         *string              `gorm:"column:delivery_address"`
	DeliveryZone            *string              `gorm:"column:delivery_zone"`
	DeliveryLat             *float64             `gorm:"column:delivery_lat"`
	DeliveryLng             *float64             `gorm:"column:delivery_lng"`
	SubtotalCents           int64                `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents        int64                `gorm:"column:delivery_fee_cents;not null;default:0"`
	PlatformCommissionCents int64                `gorm:"column:platform_commission_cents;not null;default:0"`
	TotalCents              int64                `gorm:"column:total_cents;not null"`
	PaymentMethod           enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	PaymentStatus           enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status                  enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'received'"`
	CourierID               *uuid.UUID           `gorm:"column:courier_id;type:uuid"`
	CourierLat              *float64             `gorm:"column:courier_lat"`
	CourierLng              *float64             `gorm:"column:courier_lng"`
	Note                    *string              `gorm:"column:note"`
	Items                   []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment                 *Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt             *time.Time           `gorm:"column:delivered_at"`
	CancelledAt             *time.Time           `gorm:"column:cancelled_at"`
}
