package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the price/name snapshot of each item at creation.
// The snapshot guarantees price stability for the customer even when the
// catalog price changes later.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	Note           *string   `gorm:"column:note"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
