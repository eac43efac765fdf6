package enums

import "fmt"

// PaymentStatus tracks the money axis of an order, orthogonal to OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusRefundRequested PaymentStatus = "refund_requested"
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefundRequested,
	PaymentStatusRefunded,
}

// paymentStatusRank orders the payment axis for out-of-order delivery
// detection. paid and failed share a rank: each settles the attempt and
// neither may overwrite the other.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusPending:         0,
	PaymentStatusPaid:            1,
	PaymentStatusFailed:          1,
	PaymentStatusRefundRequested: 2,
	PaymentStatusRefunded:        3,
}

// Precedes reports whether next is strictly further along the payment axis.
// A status never precedes itself, so replays and regressions both fail this.
func (p PaymentStatus) Precedes(next PaymentStatus) bool {
	return paymentStatusRank[p] < paymentStatusRank[next]
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
