package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
)

// LineInput is one resolved line item entering the calculator. The price is
// whatever the catalog returned at calculation time.
type LineInput struct {
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Qty            int
	Available      bool
}

// Quote is the frozen money breakdown for one order.
type Quote struct {
	SubtotalCents           int64
	DeliveryFeeCents        int64
	PlatformCommissionCents int64
	TotalCents              int64
}

// FeeResolver supplies the delivery fee for an order. Implementations may key
// on zone, distance, or anything else; the calculator only adds the result.
type FeeResolver interface {
	DeliveryFeeCents(orderType enums.OrderType, zone *string) int64
}

// Calculate produces the money snapshot stored on the order. Pure and
// deterministic for identical inputs so creation can be retried safely.
//
// platform_commission = round-half-up(subtotal * rate) in cents; the
// commission rate is a fraction (0.12 for 12%).
func Calculate(lines []LineInput, commissionRate float64, orderType enums.OrderType, zone *string, fees FeeResolver) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	if commissionRate < 0 || commissionRate > 1 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "commission rate %v out of range", commissionRate)
	}
	if fees == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee resolver is required")
	}

	var subtotal int64
	for _, line := range lines {
		if !line.Available {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s unavailable", line.ProductID).
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s quantity must be positive", line.ProductID)
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s has a negative price", line.ProductID)
		}
		subtotal += line.UnitPriceCents * int64(line.Qty)
	}

	deliveryFee := int64(0)
	if orderType == enums.OrderTypeDelivery {
		deliveryFee = fees.DeliveryFeeCents(orderType, zone)
	}

	commission := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(commissionRate)).
		Round(0). // round-half-up to the minor unit
		IntPart()

	return &Quote{
		SubtotalCents:           subtotal,
		DeliveryFeeCents:        deliveryFee,
		PlatformCommissionCents: commission,
		TotalCents:              subtotal + deliveryFee,
	}, nil
}

// LineTotalCents is the per-line snapshot total.
func LineTotalCents(line LineInput) int64 {
	return line.UnitPriceCents * int64(line.Qty)
}
