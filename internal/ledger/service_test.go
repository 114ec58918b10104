package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.User{}, &models.PointsTransaction{}, &models.CreditsTransaction{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
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

func seedUser(t *testing.T, db *gorm.DB, points int, credits string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Test Member",
		Role:         enums.UserRoleMember,
		Points:       points,
		Credits:      dec(t, credits),
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestDebitPointsWritesRedeemRow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 300, "0")
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DebitPoints(ctx, tx, user.ID, 120, EntryRef{Type: "order", ID: orderID})
	})
	if err != nil {
		t.Fatalf("debit points: %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if reloaded.Points != 180 {
		t.Fatalf("expected 180 points, got %d", reloaded.Points)
	}

	var row models.PointsTransaction
	if err := db.First(&row, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Type != enums.PointsTxRedeem || row.Amount != -120 || row.BalanceAfter != 180 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.ReferenceType == nil || *row.ReferenceType != "order" {
		t.Fatalf("expected order reference type")
	}
	if row.ReferenceID == nil || *row.ReferenceID != orderID {
		t.Fatalf("expected order reference id")
	}
}

func TestDebitPointsInsufficientBalance(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 50, "0")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DebitPoints(ctx, tx, user.ID, 100, EntryRef{})
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if reloaded.Points != 50 {
		t.Fatalf("balance should be untouched, got %d", reloaded.Points)
	}
	var count int64
	if err := db.Model(&models.PointsTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger rows, got %d", count)
	}
}

func TestRefundAndEarnPoints(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 0, "0")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RefundPoints(ctx, tx, user.ID, 80, EntryRef{Type: "order", ID: uuid.New(), Description: "order cancelled"})
	})
	if err != nil {
		t.Fatalf("refund points: %v", err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.EarnPoints(ctx, tx, user.ID, 20, EntryRef{Type: "order", ID: uuid.New()})
	})
	if err != nil {
		t.Fatalf("earn points: %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if reloaded.Points != 100 {
		t.Fatalf("expected 100 points, got %d", reloaded.Points)
	}

	var adjust models.PointsTransaction
	if err := db.First(&adjust, "user_id = ? AND type = ?", user.ID, enums.PointsTxAdjust).Error; err != nil {
		t.Fatalf("load adjust row: %v", err)
	}
	if adjust.Amount != 80 || adjust.BalanceAfter != 80 {
		t.Fatalf("unexpected adjust row: %+v", adjust)
	}
	if adjust.Description == nil || *adjust.Description != "order cancelled" {
		t.Fatalf("expected description on adjust row")
	}

	var earn models.PointsTransaction
	if err := db.First(&earn, "user_id = ? AND type = ?", user.ID, enums.PointsTxEarn).Error; err != nil {
		t.Fatalf("load earn row: %v", err)
	}
	if earn.Amount != 20 || earn.BalanceAfter != 100 {
		t.Fatalf("unexpected earn row: %+v", earn)
	}
}

func TestCreditsDebitAndRefundSkipLedgerRows(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 0, "200")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DebitCredits(ctx, tx, user.ID, dec(t, "75.50"))
	})
	if err != nil {
		t.Fatalf("debit credits: %v", err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.RefundCredits(ctx, tx, user.ID, dec(t, "25.50"))
	})
	if err != nil {
		t.Fatalf("refund credits: %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !reloaded.Credits.Equal(dec(t, "150")) {
		t.Fatalf("expected credits 150, got %s", reloaded.Credits)
	}

	// Order applications do not mirror into the credits ledger.
	var count int64
	if err := db.Model(&models.CreditsTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no credits rows, got %d", count)
	}
}

func TestDebitCreditsInsufficientBalance(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 0, "10")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DebitCredits(ctx, tx, user.ID, dec(t, "10.01"))
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
}

func TestGrantCreditsWritesDepositRow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db, 0, "40")
	refID := uuid.New()

	err := svc.GrantCredits(ctx, user.ID, dec(t, "60"), EntryRef{Type: "return", ID: refID, Description: "return refund"})
	if err != nil {
		t.Fatalf("grant credits: %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !reloaded.Credits.Equal(dec(t, "100")) {
		t.Fatalf("expected credits 100, got %s", reloaded.Credits)
	}

	var row models.CreditsTransaction
	if err := db.First(&row, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Type != enums.CreditsTxDeposit || !row.Amount.Equal(dec(t, "60")) || !row.BalanceAfter.Equal(dec(t, "100")) {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.ReferenceID == nil || *row.ReferenceID != refID {
		t.Fatalf("expected reference id")
	}
}

func TestBalances(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db, 420, "13.37")

	balances, err := svc.Balances(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balances.Points != 420 || !balances.Credits.Equal(dec(t, "13.37")) {
		t.Fatalf("unexpected balances: %+v", balances)
	}

	_, err = svc.Balances(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPointsHistoryPaginates(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db, 0, "0")
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	for i := 0; i < 5; i++ {
		row := &models.PointsTransaction{
			ID:           uuid.New(),
			UserID:       user.ID,
			Type:         enums.PointsTxEarn,
			Amount:       i + 1,
			BalanceAfter: i + 1,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}

	first, err := svc.PointsHistory(context.Background(), user.ID, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first.Items))
	}
	if first.NextCursor == "" {
		t.Fatalf("expected next cursor")
	}
	if first.Items[0].Amount != 5 {
		t.Fatalf("expected newest first, got amount %d", first.Items[0].Amount)
	}

	second, err := svc.PointsHistory(context.Background(), user.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(second.Items))
	}
	if second.NextCursor != "" {
		t.Fatalf("expected no next cursor, got %q", second.NextCursor)
	}
	if second.Items[0].Amount != 2 {
		t.Fatalf("unexpected second page head: %d", second.Items[0].Amount)
	}
}
