package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// Payment tracks the gateway-side progress for an order. The external
// payment id is unique so redelivered notifications resolve to the same row.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;uniqueIndex:ux_payments_external_id"`
	IntentID          *string             `gorm:"column:intent_id"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayStatus     *string             `gorm:"column:gateway_status"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
