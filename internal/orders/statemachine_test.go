package orders

import (
	"testing"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
)

func TestIsLegalTransition(t *testing.T) {
	legal := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusReceived, enums.OrderStatusPreparing},
		{enums.OrderStatusReceived, enums.OrderStatusCancelled},
		{enums.OrderStatusPreparing, enums.OrderStatusReady},
		{enums.OrderStatusReady, enums.OrderStatusOnTheWay},
		{enums.OrderStatusOnTheWay, enums.OrderStatusDelivered},
	}
	for _, edge := range legal {
		if !IsLegalTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}

	illegal := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusReceived, enums.OrderStatusReady},
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled},
		{enums.OrderStatusReady, enums.OrderStatusDelivered},
		{enums.OrderStatusDelivered, enums.OrderStatusReceived},
		{enums.OrderStatusCancelled, enums.OrderStatusPreparing},
		{enums.OrderStatusReceived, enums.OrderStatusReceived},
	}
	for _, edge := range illegal {
		if IsLegalTransition(edge.from, edge.to) {
			t.Fatalf("expected %s -> %s to be illegal", edge.from, edge.to)
		}
	}
}

func TestCanAdvanceStatusRoleGates(t *testing.T) {
	cases := []struct {
		role enums.ActorRole
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.RoleRestaurant, enums.OrderStatusReceived, enums.OrderStatusPreparing, true},
		{enums.RoleCustomer, enums.OrderStatusReceived, enums.OrderStatusPreparing, false},
		{enums.RoleCustomer, enums.OrderStatusReceived, enums.OrderStatusCancelled, true},
		{enums.RoleAdmin, enums.OrderStatusReceived, enums.OrderStatusCancelled, true},
		{enums.RoleRestaurant, enums.OrderStatusReceived, enums.OrderStatusCancelled, false},
		{enums.RoleRestaurant, enums.OrderStatusPreparing, enums.OrderStatusReady, true},
		{enums.RoleCourier, enums.OrderStatusPreparing, enums.OrderStatusReady, false},
		{enums.RoleCourier, enums.OrderStatusReady, enums.OrderStatusOnTheWay, true},
		{enums.RoleCourier, enums.OrderStatusOnTheWay, enums.OrderStatusDelivered, true},
		{enums.RoleAdmin, enums.OrderStatusOnTheWay, enums.OrderStatusDelivered, false},
	}
	for _, tc := range cases {
		if got := CanAdvanceStatus(tc.role, tc.from, tc.to); got != tc.want {
			t.Fatalf("CanAdvanceStatus(%s, %s, %s) = %v, want %v", tc.role, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionErrorTerminal(t *testing.T) {
	err := TransitionError(enums.OrderStatusDelivered, enums.OrderStatusPreparing)
	if !pkgerrors.HasCode(err, pkgerrors.CodeOrderFinalized) {
		t.Fatalf("expected ORDER_FINALIZED, got %v", err)
	}
}

func TestTransitionErrorIllegalEdge(t *testing.T) {
	err := TransitionError(enums.OrderStatusReceived, enums.OrderStatusDelivered)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}
