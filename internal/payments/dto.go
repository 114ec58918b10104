package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// CreatePaymentInput starts a settlement attempt for a member's order.
type CreatePaymentInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
}

// CreatePaymentResult is returned to the client to drive the hosted checkout.
type CreatePaymentResult struct {
	PaymentID uuid.UUID    `json:"payment_id"`
	Checkout  CheckoutForm `json:"checkout"`
}

// CallbackInput is the gateway's server-to-server settlement notification.
// MerchantTradeNo carries the order number.
type CallbackInput struct {
	MerchantTradeNo string
	RtnCode         string
	RtnMsg          string
	TradeNo         string
	Raw             map[string]string
}

// Ack strings the gateway requires in the callback response body.
const (
	AckOK            = "1|OK"
	AckOrderNotFound = "0|OrderNotFound"
	AckBadMac        = "0|CheckMacValue Error"
)

// StatusView is the member-facing settlement state of an order.
type StatusView struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Attempt       *AttemptView        `json:"attempt,omitempty"`
}

// AttemptView summarizes the latest payment attempt.
type AttemptView struct {
	PaymentID     uuid.UUID                  `json:"payment_id"`
	Status        enums.PaymentAttemptStatus `json:"status"`
	Amount        decimal.Decimal            `json:"amount"`
	Currency      string                     `json:"currency"`
	TransactionID *string                    `json:"transaction_id,omitempty"`
	PaidAt        *time.Time                 `json:"paid_at,omitempty"`
}
