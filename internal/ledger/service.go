package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes balance mutations and ledger reads. The tx-scoped methods
// participate in a caller-owned transaction so order math and balance math
// commit or roll back together.
type Service interface {
	DebitPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error
	RefundPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error
	EarnPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error
	DebitCredits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
	RefundCredits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
	GrantCredits(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref EntryRef) error
	Balances(ctx context.Context, userID uuid.UUID) (*Balances, error)
	PointsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*PointsHistoryPage, error)
	CreditsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CreditsHistoryPage, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// DebitPoints burns points at checkout and writes a redeem ledger row with
// the post-debit balance.
func (s *service) DebitPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.AdjustPoints(ctx, userID, -amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit points")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "points balance too low")
	}

	return s.writePointsRow(ctx, repo, userID, enums.PointsTxRedeem, -amount, ref)
}

// RefundPoints returns points on cancellation as an adjust entry.
func (s *service) RefundPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.AdjustPoints(ctx, userID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund points")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	return s.writePointsRow(ctx, repo, userID, enums.PointsTxAdjust, amount, ref)
}

// EarnPoints awards points, e.g. after a completed order.
func (s *service) EarnPoints(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, ref EntryRef) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.AdjustPoints(ctx, userID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "earn points")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	return s.writePointsRow(ctx, repo, userID, enums.PointsTxEarn, amount, ref)
}

// DebitCredits spends store credit at checkout. Credits rows are only written
// for grants and admin adjustments; order applications live on the order row.
func (s *service) DebitCredits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits amount must be positive")
	}
	ok, err := s.repo.WithTx(tx).AdjustCredits(ctx, userID, amount.Neg())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit credits")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "credits balance too low")
	}
	return nil
}

// RefundCredits returns spent credit on cancellation.
func (s *service) RefundCredits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits amount must be positive")
	}
	ok, err := s.repo.WithTx(tx).AdjustCredits(ctx, userID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund credits")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// GrantCredits deposits store credit with a ledger row, in its own transaction.
func (s *service) GrantCredits(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref EntryRef) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits amount must be positive")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.AdjustCredits(ctx, userID, amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant credits")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user balance")
		}

		row := &models.CreditsTransaction{
			UserID:       userID,
			Type:         enums.CreditsTxDeposit,
			Amount:       amount,
			BalanceAfter: user.Credits,
		}
		applyRef(&row.ReferenceType, &row.ReferenceID, &row.Description, ref)
		if err := repo.CreateCreditsTransaction(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write credits ledger row")
		}
		return nil
	})
}

func (s *service) Balances(ctx context.Context, userID uuid.UUID) (*Balances, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &Balances{Points: user.Points, Credits: user.Credits}, nil
}

func (s *service) PointsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*PointsHistoryPage, error) {
	page, err := s.repo.ListPointsTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list points transactions")
	}
	return page, nil
}

func (s *service) CreditsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CreditsHistoryPage, error) {
	page, err := s.repo.ListCreditsTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credits transactions")
	}
	return page, nil
}

// writePointsRow loads the post-adjust balance and appends the ledger entry
// inside the same transaction, keeping balance_after exact.
func (s *service) writePointsRow(ctx context.Context, repo Repository, userID uuid.UUID, txnType enums.PointsTransactionType, amount int, ref EntryRef) error {
	user, err := repo.FindUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user balance")
	}

	row := &models.PointsTransaction{
		UserID:       userID,
		Type:         txnType,
		Amount:       amount,
		BalanceAfter: user.Points,
	}
	applyRef(&row.ReferenceType, &row.ReferenceID, &row.Description, ref)
	if err := repo.CreatePointsTransaction(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write points ledger row")
	}
	return nil
}

func applyRef(refType **string, refID **uuid.UUID, description **string, ref EntryRef) {
	if ref.Type != "" {
		t := ref.Type
		*refType = &t
	}
	if ref.ID != uuid.Nil {
		id := ref.ID
		*refID = &id
	}
	if ref.Description != "" {
		d := ref.Description
		*description = &d
	}
}
