package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

// Repository defines persistence for the orders aggregate. Status and claim
// writes are conditional updates; callers interpret zero affected rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	// UpdateStatusCAS flips status only when the stored status still matches
	// expected. Returns the number of rows affected (0 or 1).
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected, next enums.OrderStatus) (int64, error)
	// Claim sets the courier atomically on an unclaimed ready order.
	Claim(ctx context.Context, orderID, courierID uuid.UUID) (int64, error)
	// Release clears the courier only when the holder matches.
	Release(ctx context.Context, orderID, courierID uuid.UUID) (int64, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
	UpdateCourierPosition(ctx context.Context, orderID uuid.UUID, lat, lng float64) error
	FindActiveOrderForCourier(ctx context.Context, courierID uuid.UUID) (*models.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters RestaurantOrderFilters) (*OrderList, error)
	ListReadyUnclaimed(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListByCourier(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error)
}
