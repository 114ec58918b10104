package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) CountUserUsages(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

// IncrementUsedCount bumps used_count only while the global cap holds, so two
// concurrent checkouts cannot both take the last redemption.
func (r *repository) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateUsage inserts the usage row only while the caller's per-user count is
// below the limit, so concurrent checkouts by one account cannot both slip
// past the Evaluate-time check. A non-positive limit means unlimited.
func (r *repository) CreateUsage(ctx context.Context, usage *models.CouponUsage, perUserLimit int) (bool, error) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.UsedAt.IsZero() {
		usage.UsedAt = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_amount, used_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE ? <= 0 OR (SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = ? AND user_id = ?) < ?`,
		usage.ID, usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountAmount, usage.UsedAt,
		perUserLimit, usage.CouponID, usage.UserID, perUserLimit,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
