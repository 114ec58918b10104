package shipping

import (
	"context"

	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
)

// Repository defines read operations for shipping methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.ShippingMethod, error)
	FindActiveByCode(ctx context.Context, code string) (*models.ShippingMethod, error)
}
