package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	"github.com/pfstore/storefront-backend/pkg/types"
)

// CreateOrderInput captures a member checkout request. Pricing is always
// recomputed from the live catalog; client-side totals are ignored.
type CreateOrderInput struct {
	UserID             uuid.UUID
	PaymentMethod      enums.PaymentMethod
	ShippingMethodCode string
	ShippingAddress    types.ShippingAddress
	CouponCode         *string
	UsePoints          int
	UseCredits         decimal.Decimal
	CustomerNote       *string
}

// CancelInput cancels a pending or confirmed order.
type CancelInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Note    *string
}

// ReturnInput files a return request against a delivered order.
type ReturnInput struct {
	UserID      uuid.UUID
	OrderID     uuid.UUID
	Reason      string
	Description *string
	Images      []string
}

// UpdateStatusInput is the admin-side transition request.
type UpdateStatusInput struct {
	OrderID        uuid.UUID
	ToStatus       enums.OrderStatus
	AdminID        uuid.UUID
	TrackingNumber *string
	Note           *string
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// Page is one cursor page of orders.
type Page struct {
	Items      []models.Order `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
