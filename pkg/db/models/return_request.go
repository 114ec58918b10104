package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// ReturnRequest tracks an after-sale return. At most one active (pending or
// approved) request may exist per order.
type ReturnRequest struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Reason       string             `gorm:"column:reason;not null"`
	Description  *string            `gorm:"column:description"`
	Images       []string           `gorm:"column:images;type:jsonb;serializer:json"`
	Status       enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RefundAmount decimal.Decimal    `gorm:"column:refund_amount;type:numeric(10,2);not null"`
	AdminNotes   *string            `gorm:"column:admin_notes"`
	ResolvedAt   *time.Time         `gorm:"column:resolved_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
