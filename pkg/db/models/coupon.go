package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
)

// Coupon is a percentage or fixed-amount discount with validity window and
// usage caps. UsedCount is bumped with a guarded UPDATE so the global limit
// holds under concurrent checkouts.
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;uniqueIndex;not null"`
	Name           string             `gorm:"column:name;not null"`
	Description    *string            `gorm:"column:description"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  decimal.Decimal    `gorm:"column:discount_value;type:numeric(10,2);not null"`
	MinOrderAmount decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(10,2);not null;default:0"`
	MaxDiscount    *decimal.Decimal   `gorm:"column:max_discount;type:numeric(10,2)"`
	UsageLimit     *int               `gorm:"column:usage_limit"`
	UsagePerUser   int                `gorm:"column:usage_per_user;not null;default:1"`
	UsedCount      int                `gorm:"column:used_count;not null;default:0"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	StartsAt       time.Time          `gorm:"column:starts_at;not null"`
	ExpiresAt      time.Time          `gorm:"column:expires_at;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// InWindow reports whether now falls inside the coupon's validity window.
func (c Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.StartsAt) && !now.After(c.ExpiresAt)
}
