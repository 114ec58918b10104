package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/enums"
	"github.com/pfstore/storefront-backend/pkg/types"
)

// Order is the aggregate root of the purchase lifecycle. Monetary fields are
// snapshots fixed at creation time; only Status, PaymentStatus, tracking and
// the timestamps change afterwards.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber     string                 `gorm:"column:order_number;uniqueIndex;not null"`
	Status          enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal        decimal.Decimal        `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Discount        decimal.Decimal        `gorm:"column:discount;type:numeric(10,2);not null;default:0"`
	ShippingFee     decimal.Decimal        `gorm:"column:shipping_fee;type:numeric(10,2);not null;default:0"`
	Total           decimal.Decimal        `gorm:"column:total;type:numeric(10,2);not null"`
	PointsUsed      int                    `gorm:"column:points_used;not null;default:0"`
	CreditsUsed     decimal.Decimal        `gorm:"column:credits_used;type:numeric(10,2);not null;default:0"`
	CouponCode      *string                `gorm:"column:coupon_code"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   enums.PaymentStatus    `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	ShippingMethod  *string                `gorm:"column:shipping_method"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	TrackingNumber  *string                `gorm:"column:tracking_number"`
	CustomerNote    *string                `gorm:"column:customer_note"`
	ShippedAt       *time.Time             `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID"`
	StatusLogs      []OrderStatusLog       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
