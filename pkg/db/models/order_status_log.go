package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// OrderStatusLog is an append-only audit trail of status transitions.
// FromStatus is empty on the row written at order creation.
type OrderStatusLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus string            `gorm:"column:from_status;not null;default:''"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ChangedBy  *uuid.UUID        `gorm:"column:changed_by;type:uuid"`
	Note       *string           `gorm:"column:note"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
