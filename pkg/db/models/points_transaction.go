package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// PointsTransaction is an append-only ledger entry. Amount is signed;
// BalanceAfter is computed inside the same transaction as the balance update.
type PointsTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.PointsTransactionType `gorm:"column:type;type:text;not null"`
	Amount        int                         `gorm:"column:amount;not null"`
	BalanceAfter  int                         `gorm:"column:balance_after;not null"`
	ReferenceType *string                     `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	Description   *string                     `gorm:"column:description"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}
