package pricing

import (
	"strings"

	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
)

// ZoneFeeResolver resolves delivery fees from the configured zone table with
// a flat fallback. Pickup orders always cost zero.
type ZoneFeeResolver struct {
	flatCents int64
	zoneFees  map[string]int64
}

// NewZoneFeeResolver builds a resolver from the delivery config section.
func NewZoneFeeResolver(cfg config.DeliveryConfig) *ZoneFeeResolver {
	return &ZoneFeeResolver{
		flatCents: cfg.FlatFeeCents,
		zoneFees:  cfg.ZoneFees,
	}
}

// DeliveryFeeCents implements FeeResolver.
func (r *ZoneFeeResolver) DeliveryFeeCents(orderType enums.OrderType, zone *string) int64 {
	if orderType != enums.OrderTypeDelivery {
		return 0
	}
	if zone != nil {
		key := strings.ToLower(strings.TrimSpace(*zone))
		if fee, ok := r.zoneFees[key]; ok {
			return fee
		}
	}
	return r.flatCents
}
