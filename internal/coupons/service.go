package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// EvaluateInput carries everything needed to price a coupon against a cart.
type EvaluateInput struct {
	Code     string
	UserID   uuid.UUID
	Subtotal decimal.Decimal
	Now      time.Time
}

// Evaluation is a successful coupon pricing: the matched coupon and the
// discount it yields, rounded to cents. A fixed discount may exceed the
// subtotal; the caller floors the final total at zero.
type Evaluation struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// RedeemInput finalizes an evaluated coupon against a created order.
type RedeemInput struct {
	Coupon   *models.Coupon
	UserID   uuid.UUID
	OrderID  uuid.UUID
	Discount decimal.Decimal
}

// Service evaluates and redeems discount coupons. Evaluate is read-only;
// Redeem must run inside the order-creation transaction.
type Service interface {
	Evaluate(ctx context.Context, input EvaluateInput) (*Evaluation, error)
	Redeem(ctx context.Context, tx *gorm.DB, input RedeemInput) error
}

type service struct {
	repo Repository
}

// NewService builds a coupon service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Evaluate(ctx context.Context, input EvaluateInput) (*Evaluation, error) {
	// Codes are stored uppercase; lookups normalize the same way.
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, rejected("coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.IsActive {
		return nil, rejected("coupon is inactive")
	}
	if !coupon.InWindow(input.Now) {
		return nil, rejected("coupon is outside its validity window")
	}
	if input.Subtotal.LessThan(coupon.MinOrderAmount) {
		return nil, rejected("order subtotal below coupon minimum")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, rejected("coupon usage limit reached")
	}

	used, err := s.repo.CountUserUsages(ctx, coupon.ID, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon usages")
	}
	if coupon.UsagePerUser > 0 && used >= int64(coupon.UsagePerUser) {
		return nil, rejected("coupon already used by this account")
	}

	return &Evaluation{
		Coupon:   coupon,
		Discount: computeDiscount(coupon, input.Subtotal),
	}, nil
}

// Redeem bumps the guarded used_count and records the usage row. A failed
// bump means a concurrent checkout exhausted the coupon after Evaluate.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, input RedeemInput) error {
	if input.Coupon == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon required")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.IncrementUsedCount(ctx, input.Coupon.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon used count")
	}
	if !ok {
		return rejected("coupon usage limit reached")
	}

	orderID := input.OrderID
	usage := &models.CouponUsage{
		CouponID:       input.Coupon.ID,
		UserID:         input.UserID,
		OrderID:        &orderID,
		DiscountAmount: input.Discount,
	}
	ok, err = repo.CreateUsage(ctx, usage, input.Coupon.UsagePerUser)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	if !ok {
		return rejected("coupon already used by this account")
	}
	return nil
}

func computeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2)
}

func rejected(reason string) error {
	return pkgerrors.New(pkgerrors.CodeCouponRejected, "coupon not applicable").
		WithDetails(map[string]string{"reason": reason})
}
