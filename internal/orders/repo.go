package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("tracking_number = ?", trackingNumber).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected, next enums.OrderStatus) (int64, error) {
	updates := map[string]any{
		"status":     next,
		"updated_at": time.Now(),
	}
	switch next {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = time.Now()
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) Claim(ctx context.Context, orderID, courierID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND courier_id IS NULL", orderID, enums.OrderStatusReady).
		Updates(map[string]any{
			"courier_id": courierID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Release(ctx context.Context, orderID, courierID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND courier_id = ?", orderID, courierID).
		Updates(map[string]any{
			"courier_id":  nil,
			"courier_lat": nil,
			"courier_lng": nil,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status": status,
			"updated_at":     time.Now(),
		}).Error
}

func (r *repository) UpdateCourierPosition(ctx context.Context, orderID uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"courier_lat": lat,
			"courier_lng": lng,
		}).Error
}

func (r *repository) FindActiveOrderForCourier(ctx context.Context, courierID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("courier_id = ? AND status = ?", courierID, enums.OrderStatusOnTheWay).
		Order("updated_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters RestaurantOrderFilters) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("restaurant_id = ?", restaurantID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return r.listPage(query, params)
}

func (r *repository) ListReadyUnclaimed(ctx context.Context, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND courier_id IS NULL", enums.OrderStatusReady)
	return r.listPage(query, params)
}

func (r *repository) ListByCourier(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("courier_id = ?", courierID)
	return r.listPage(query, params)
}

func (r *repository) listPage(query *gorm.DB, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	visible, next := pagination.Page(rows, params.Limit,
		func(o models.Order) time.Time { return o.CreatedAt },
		func(o models.Order) uuid.UUID { return o.ID },
	)
	return &OrderList{Orders: visible, NextCursor: next}, nil
}
