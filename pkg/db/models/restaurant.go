package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is consumed read-only by the engine: activity gate plus the
// commission rate applied at order creation.
type Restaurant struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CommissionRate float64   `gorm:"column:commission_rate;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
