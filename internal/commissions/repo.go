package commissions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// Repository defines persistence for the commission ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreateRecords(ctx context.Context, records []models.CommissionRecord) error
	FindRecord(ctx context.Context, id uuid.UUID) (*models.CommissionRecord, error)
	FindRecordsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CommissionRecord, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionRecord, error)
	ListByMemberAndStatus(ctx context.Context, memberID uuid.UUID, status enums.CommissionStatus) ([]models.CommissionRecord, error)
	UpdateRecordStatus(ctx context.Context, id uuid.UUID, status enums.CommissionStatus) error
	CreateBatch(ctx context.Context, batch *models.CommissionPaymentBatch) error
	// MarkPaid flips the given records to paid and links them to the batch.
	MarkPaid(ctx context.Context, recordIDs []uuid.UUID, batchID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateRecords(ctx context.Context, records []models.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) FindRecord(ctx context.Context, id uuid.UUID) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindRecordsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&records).Error
	return records, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("member_id ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListByMemberAndStatus(ctx context.Context, memberID uuid.UUID, status enums.CommissionStatus) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND status = ?", memberID, status).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) UpdateRecordStatus(ctx context.Context, id uuid.UUID, status enums.CommissionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *repository) CreateBatch(ctx context.Context, batch *models.CommissionPaymentBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) MarkPaid(ctx context.Context, recordIDs []uuid.UUID, batchID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("id IN ?", recordIDs).
		Updates(map[string]any{
			"status":           enums.CommissionStatusPaid,
			"payment_batch_id": batchID,
			"updated_at":       time.Now(),
		})
	return result.RowsAffected, result.Error
}
