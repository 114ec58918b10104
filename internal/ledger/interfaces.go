package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for balances and ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	AdjustPoints(ctx context.Context, userID uuid.UUID, delta int) (bool, error)
	AdjustCredits(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (bool, error)
	CreatePointsTransaction(ctx context.Context, txn *models.PointsTransaction) error
	CreateCreditsTransaction(ctx context.Context, txn *models.CreditsTransaction) error
	ListPointsTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*PointsHistoryPage, error)
	ListCreditsTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CreditsHistoryPage, error)
}
