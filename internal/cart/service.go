package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/internal/catalog"
	"github.com/pfstore/storefront-backend/internal/coupons"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
)

// Service manages the member cart. Stock checks here are advisory; the
// authoritative check happens when the order is created.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, input AddItemInput) (*View, error)
	UpdateItem(ctx context.Context, input UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*CouponPreview, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	coupons coupons.Service
	now     func() time.Time
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, couponSvc coupons.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	return &service{repo: repo, catalog: catalogRepo, coupons: couponSvc, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return buildView(items), nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*View, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.FindActiveProduct(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	existing, err := s.repo.FindItemByProduct(ctx, input.UserID, input.ProductID, input.VariantID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
	}

	desired := input.Quantity
	if existing != nil {
		desired += existing.Quantity
	}
	if desired > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds stock").
			WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
	}

	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, desired); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	} else {
		item := &models.CartItem{
			UserID:    input.UserID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
	}

	return s.Get(ctx, input.UserID)
}

func (s *service) UpdateItem(ctx context.Context, input UpdateItemInput) (*View, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := s.repo.FindItem(ctx, input.ItemID, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if item.Product != nil && input.Quantity > item.Product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds stock").
			WithDetails(map[string]any{"product_id": item.ProductID, "available": item.Product.Stock})
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.Get(ctx, input.UserID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	if err := s.repo.DeleteItem(ctx, itemID, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.Get(ctx, userID)
}

// PreviewCoupon prices a coupon against the live cart without consuming it.
// The evaluation is repeated at checkout; a rejection here surfaces the
// reason instead of being swallowed.
func (s *service) PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*CouponPreview, error) {
	view, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	eval, err := s.coupons.Evaluate(ctx, coupons.EvaluateInput{
		Code:     code,
		UserID:   userID,
		Subtotal: view.Subtotal,
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	// A fixed discount can exceed the subtotal; the preview floors at zero
	// the same way checkout floors the final total.
	discounted := view.Subtotal.Sub(eval.Discount).Round(2)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return &CouponPreview{
		Code:       eval.Coupon.Code,
		Subtotal:   view.Subtotal,
		Discount:   eval.Discount,
		Discounted: discounted,
	}, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func buildView(items []models.CartItem) *View {
	view := &View{Lines: []Line{}, Subtotal: decimal.Zero}
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive {
			continue
		}
		unit := item.Product.EffectivePrice()
		lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		view.Lines = append(view.Lines, Line{
			ItemID:       item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.Product.Name,
			ProductImage: item.Product.PrimaryImage,
			UnitPrice:    unit,
			Quantity:     item.Quantity,
			LineTotal:    lineTotal,
			InStock:      item.Product.Stock >= item.Quantity,
		})
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	view.Subtotal = view.Subtotal.Round(2)
	return view
}
