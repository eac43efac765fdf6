package commissions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emersonbarrios/fooddash-backend/internal/team"
)

// allocation is one member's computed slice of an order's commission pool.
type allocation struct {
	MemberID    uuid.UUID
	Percentage  float64
	AmountCents int64
}

// splitPool divides the commission pool across members proportionally to
// their percentage weight, normalized over the sum of active weights. Each
// slice is rounded half-up; the rounding drift (at most a few cents) lands
// on the largest share so the slices always sum to the pool exactly. Ties
// on share size resolve by smallest member id to keep the result stable.
func splitPool(poolCents int64, shares []team.MemberShare) []allocation {
	if len(shares) == 0 || poolCents <= 0 {
		return nil
	}

	totalPct := decimal.Zero
	for _, share := range shares {
		totalPct = totalPct.Add(decimal.NewFromFloat(share.Percentage))
	}
	if totalPct.IsZero() {
		return nil
	}

	pool := decimal.NewFromInt(poolCents)
	allocations := make([]allocation, len(shares))
	var allocated int64
	largest := 0
	for i, share := range shares {
		pct := decimal.NewFromFloat(share.Percentage)
		amount := pool.Mul(pct).Div(totalPct).Round(0).IntPart()
		allocations[i] = allocation{
			MemberID:    share.MemberID,
			Percentage:  share.Percentage,
			AmountCents: amount,
		}
		allocated += amount

		if i > 0 {
			current := allocations[i]
			top := allocations[largest]
			if current.AmountCents > top.AmountCents ||
				(current.AmountCents == top.AmountCents && current.MemberID.String() < top.MemberID.String()) {
				largest = i
			}
		}
	}

	allocations[largest].AmountCents += poolCents - allocated
	return allocations
}
