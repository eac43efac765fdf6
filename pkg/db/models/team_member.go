package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember holds the revenue-share configuration consumed by the
// commission ledger at materialization time.
type TeamMember struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Percentage float64   `gorm:"column:percentage;not null"`
	Active     bool      `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
