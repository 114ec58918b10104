package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// CreditsTransaction mirrors PointsTransaction for the store-credit balance.
type CreditsTransaction struct {
	ID            uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID                    `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.CreditsTransactionType `gorm:"column:type;type:text;not null"`
	Amount        decimal.Decimal              `gorm:"column:amount;type:numeric(10,2);not null"`
	BalanceAfter  decimal.Decimal              `gorm:"column:balance_after;type:numeric(10,2);not null"`
	ReferenceType *string                      `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID                   `gorm:"column:reference_id;type:uuid"`
	Description   *string                      `gorm:"column:description"`
	CreatedAt     time.Time                    `gorm:"column:created_at;autoCreateTime;index"`
}
