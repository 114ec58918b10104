package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
	"github.com/pfstore/storefront-backend/pkg/types"
)

// Payment is one settlement attempt against an order. An order can carry
// several attempts; callbacks resolve against the latest one. IdempotencyKey
// is minted at creation and unique across all attempts.
type Payment struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	Method          enums.PaymentMethod       `gorm:"column:method;type:text;not null"`
	Amount          decimal.Decimal           `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency        string                    `gorm:"column:currency;not null"`
	Status          enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	IdempotencyKey  string                    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	TransactionID   *string                   `gorm:"column:transaction_id"`
	GatewayResponse types.JSONMap             `gorm:"column:gateway_response;type:jsonb;serializer:json"`
	PaidAt          *time.Time                `gorm:"column:paid_at"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
}
