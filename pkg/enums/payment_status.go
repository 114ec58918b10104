package enums

import "fmt"

// PaymentStatus is the order-level settlement state.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (p PaymentStatus) String() string {
	return string(p)
}

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

// PaymentAttemptStatus is the per-attempt state on a payment row.
type PaymentAttemptStatus string

const (
	PaymentAttemptStatusPending   PaymentAttemptStatus = "pending"
	PaymentAttemptStatusCompleted PaymentAttemptStatus = "completed"
	PaymentAttemptStatusFailed    PaymentAttemptStatus = "failed"
)

func (p PaymentAttemptStatus) String() string {
	return string(p)
}

func (p PaymentAttemptStatus) IsValid() bool {
	switch p {
	case PaymentAttemptStatusPending, PaymentAttemptStatusCompleted, PaymentAttemptStatusFailed:
		return true
	default:
		return false
	}
}
