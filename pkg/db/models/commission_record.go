package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// CommissionRecord is one team member's share of one order's commission
// pool. The percentage is a snapshot taken at materialization time and is
// immune to later revenue-share edits. (order_id, member_id) uniqueness is
// the exactly-once guard against duplicate materialization.
type CommissionRecord struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_commission_records_order_member"`
	MemberID       uuid.UUID              `gorm:"column:member_id;type:uuid;not null;uniqueIndex:ux_commission_records_order_member"`
	Percentage     float64                `gorm:"column:percentage;not null"`
	AmountCents    int64                  `gorm:"column:amount_cents;not null"`
	Status         enums.CommissionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentBatchID *uuid.UUID             `gorm:"column:payment_batch_id;type:uuid"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
