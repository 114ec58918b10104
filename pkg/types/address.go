package types

// ShippingAddress is the denormalized address snapshot stored on an order.
// Orders keep their own copy so later edits to the account's address book
// never rewrite history.
type ShippingAddress struct {
	RecipientName string `json:"recipient_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	ZipCode       string `json:"zip_code"`
	City          string `json:"city" validate:"required"`
	District      string `json:"district"`
	Address       string `json:"address" validate:"required"`
}
