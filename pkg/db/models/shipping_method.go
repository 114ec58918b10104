package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethod is a flat-fee delivery option. FreeThreshold, when set,
// waives the fee once the raw merchandise subtotal reaches it.
type ShippingMethod struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code          string           `gorm:"column:code;uniqueIndex;not null"`
	Name          string           `gorm:"column:name;not null"`
	Description   *string          `gorm:"column:description"`
	Fee           decimal.Decimal  `gorm:"column:fee;type:numeric(10,2);not null;default:0"`
	FreeThreshold *decimal.Decimal `gorm:"column:free_threshold;type:numeric(10,2)"`
	EstimatedDays *string          `gorm:"column:estimated_days"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	SortOrder     int              `gorm:"column:sort_order;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
