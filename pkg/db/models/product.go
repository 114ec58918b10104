package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a live catalog entry. Orders snapshot the fields they need, so
// products are deactivated rather than deleted once referenced.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name         string           `gorm:"column:name;not null"`
	Slug         string           `gorm:"column:slug;uniqueIndex;not null"`
	SKU          string           `gorm:"column:sku;uniqueIndex;not null"`
	Description  *string          `gorm:"column:description"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	SalePrice    *decimal.Decimal `gorm:"column:sale_price;type:numeric(10,2)"`
	PrimaryImage *string          `gorm:"column:primary_image"`
	Stock        int              `gorm:"column:stock;not null;default:0"`
	SoldCount    int              `gorm:"column:sold_count;not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the sale price when set, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
