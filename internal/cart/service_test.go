package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/internal/catalog"
	"github.com/pfstore/storefront-backend/internal/coupons"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.CartItem{}, &models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), couponSvc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func seedProduct(t *testing.T, db *gorm.DB, price string, salePrice *string, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Product " + uuid.NewString()[:8],
		Slug:     "product-" + uuid.NewString(),
		SKU:      "SKU-" + uuid.NewString(),
		Price:    dec(t, price),
		Stock:    stock,
		IsActive: active,
	}
	if salePrice != nil {
		sale := dec(t, *salePrice)
		product.SalePrice = &sale
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestAddItemMergesQuantity(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "100", nil, 10, true)

	if _, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	view, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(view.Lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(view.Lines))
	}
	if view.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", view.Lines[0].Quantity)
	}

	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row, got %d", count)
	}
}

func TestAddItemChecksAdvisoryStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: uuid.New(), Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestAddItemRejectsOverStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "100", nil, 3, true)

	if _, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 2})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock on merge, got %v", err)
	}
}

func TestViewUsesEffectivePriceAndDropsInactive(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	sale := "80"
	onSale := seedProduct(t, db, "100", &sale, 10, true)
	retired := seedProduct(t, db, "50", nil, 10, true)

	if _, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: onSale.ID, Quantity: 2}); err != nil {
		t.Fatalf("add sale item: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: retired.ID, Quantity: 1}); err != nil {
		t.Fatalf("add retired item: %v", err)
	}
	if err := db.Model(&models.Product{}).Where("id = ?", retired.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	view, err := svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected inactive product dropped, got %d lines", len(view.Lines))
	}
	line := view.Lines[0]
	if !line.UnitPrice.Equal(dec(t, "80")) {
		t.Fatalf("expected sale price 80, got %s", line.UnitPrice)
	}
	if !line.LineTotal.Equal(dec(t, "160")) || !view.Subtotal.Equal(dec(t, "160")) {
		t.Fatalf("unexpected totals: line %s subtotal %s", line.LineTotal, view.Subtotal)
	}
	if !line.InStock {
		t.Fatalf("expected line in stock")
	}
}

func TestPreviewCoupon(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "500", nil, 10, true)

	_, err := svc.PreviewCoupon(ctx, userID, "SAVE10")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}

	if _, err := svc.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Name:          "Ten percent off",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: dec(t, "10"),
		UsagePerUser:  1,
		IsActive:      true,
		StartsAt:      time.Now().Add(-time.Hour),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	preview, err := svc.PreviewCoupon(ctx, userID, "SAVE10")
	if err != nil {
		t.Fatalf("preview coupon: %v", err)
	}
	if !preview.Subtotal.Equal(dec(t, "1000")) {
		t.Fatalf("unexpected subtotal %s", preview.Subtotal)
	}
	if !preview.Discount.Equal(dec(t, "100")) {
		t.Fatalf("unexpected discount %s", preview.Discount)
	}
	if !preview.Discounted.Equal(dec(t, "900")) {
		t.Fatalf("unexpected discounted subtotal %s", preview.Discounted)
	}

	// Previews never consume the coupon.
	_, err = svc.PreviewCoupon(ctx, userID, "SAVE10")
	if err != nil {
		t.Fatalf("second preview: %v", err)
	}

	_, err = svc.PreviewCoupon(ctx, userID, "NOPE")
	if !pkgerrors.IsCode(err, pkgerrors.CodeCouponRejected) {
		t.Fatalf("expected rejection for unknown coupon, got %v", err)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.UpdateItem(ctx, UpdateItemInput{UserID: userID, ItemID: uuid.New(), Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	svc2, db := newTestService(t)
	product := seedProduct(t, db, "100", nil, 5, true)
	view, err := svc2.AddItem(ctx, AddItemInput{UserID: userID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	itemID := view.Lines[0].ItemID

	view, err = svc2.UpdateItem(ctx, UpdateItemInput{UserID: userID, ItemID: itemID, Quantity: 4})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if view.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", view.Lines[0].Quantity)
	}

	_, err = svc2.UpdateItem(ctx, UpdateItemInput{UserID: userID, ItemID: itemID, Quantity: 6})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	view, err = svc2.RemoveItem(ctx, userID, itemID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(view.Lines))
	}
}
