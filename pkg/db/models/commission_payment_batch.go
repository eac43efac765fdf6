package models

import (
	"time"

	"github.com/google/uuid"
)

// CommissionPaymentBatch records a bulk payout to one team member.
type CommissionPaymentBatch struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID    uuid.UUID `gorm:"column:member_id;type:uuid;not null"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	RecordCount int       `gorm:"column:record_count;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
