package orders

import (
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
)

type transition struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// legalTransitions maps each allowed edge to the roles that may drive it.
// Anything absent is illegal regardless of role.
var legalTransitions = map[transition][]enums.ActorRole{
	{enums.OrderStatusReceived, enums.OrderStatusPreparing}: {enums.RoleRestaurant},
	{enums.OrderStatusReceived, enums.OrderStatusCancelled}: {enums.RoleCustomer, enums.RoleAdmin},
	{enums.OrderStatusPreparing, enums.OrderStatusReady}:    {enums.RoleRestaurant},
	{enums.OrderStatusReady, enums.OrderStatusOnTheWay}:     {enums.RoleCourier},
	{enums.OrderStatusOnTheWay, enums.OrderStatusDelivered}: {enums.RoleCourier},
}

// IsLegalTransition reports whether the edge exists at all.
func IsLegalTransition(from, to enums.OrderStatus) bool {
	_, ok := legalTransitions[transition{from, to}]
	return ok
}

// CanAdvanceStatus is the capability check done once at the operation
// boundary: the edge must exist and the role must be allowed to drive it.
func CanAdvanceStatus(role enums.ActorRole, from, to enums.OrderStatus) bool {
	roles, ok := legalTransitions[transition{from, to}]
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// TransitionError builds the rejection for an edge that cannot be taken.
// Terminal origin states report OrderFinalized; everything else reports the
// illegal edge naming both statuses.
func TransitionError(from, to enums.OrderStatus) error {
	if from.IsTerminal() {
		return pkgerrors.Newf(pkgerrors.CodeOrderFinalized, "order already %s", from).
			WithDetails(map[string]any{"status": from.String()})
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "illegal transition %s -> %s", from, to).
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}
