package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput adds or merges a product line into the cart.
type AddItemInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// UpdateItemInput replaces the quantity of an existing line.
type UpdateItemInput struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	Quantity int
}

// Line is one cart row priced at the live effective price.
type Line struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	VariantID    *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductImage *string         `json:"product_image,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
	InStock      bool            `json:"in_stock"`
}

// View is the member-facing cart: priced lines plus the live subtotal.
// Inactive products are dropped from the view.
type View struct {
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CouponPreview prices a coupon against the current cart without redeeming it.
type CouponPreview struct {
	Code       string          `json:"code"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Discounted decimal.Decimal `json:"discounted_subtotal"`
}
