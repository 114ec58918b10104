package orders

import (
	"testing"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusDelivered, false},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped, true},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusProcessing, enums.OrderStatusDelivered, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusPending, false},
		{enums.OrderStatusDelivered, enums.OrderStatusReturnRequested, true},
		{enums.OrderStatusReturnRequested, enums.OrderStatusReturned, true},
		{enums.OrderStatusReturnRequested, enums.OrderStatusDelivered, true},
		{enums.OrderStatusReturned, enums.OrderStatusDelivered, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	t.Parallel()

	for _, terminal := range []enums.OrderStatus{enums.OrderStatusReturned, enums.OrderStatusCancelled} {
		if exits := validTransitions[terminal]; len(exits) != 0 {
			t.Errorf("%s should be terminal, has exits %v", terminal, exits)
		}
	}
}
