package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog row the engine snapshots prices from.
type Product struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid;not null"`
	Name         string    `gorm:"column:name;not null"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	Available    bool      `gorm:"column:available;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
