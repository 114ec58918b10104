package shipping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
)

// Service resolves shipping methods and quotes fees.
type Service interface {
	List(ctx context.Context) ([]models.ShippingMethod, error)
	Resolve(ctx context.Context, code string) (*models.ShippingMethod, error)
}

type service struct {
	repo Repository
}

// NewService builds a shipping service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.ShippingMethod, error) {
	methods, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping methods")
	}
	return methods, nil
}

func (s *service) Resolve(ctx context.Context, code string) (*models.ShippingMethod, error) {
	method, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping method")
	}
	return method, nil
}

// QuoteFee returns the fee for a method given the raw merchandise subtotal,
// before coupon discounts; the fee is waived once the free threshold is met.
func QuoteFee(method *models.ShippingMethod, subtotal decimal.Decimal) decimal.Decimal {
	if method == nil {
		return decimal.Zero
	}
	if method.FreeThreshold != nil && subtotal.GreaterThanOrEqual(*method.FreeThreshold) {
		return decimal.Zero
	}
	return method.Fee
}
