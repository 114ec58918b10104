package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/db/models"
)

// EntryRef ties a ledger row back to the domain object that caused it.
type EntryRef struct {
	Type        string
	ID          uuid.UUID
	Description string
}

// Balances is the read surface for an account's stored value.
type Balances struct {
	Points  int             `json:"points"`
	Credits decimal.Decimal `json:"credits"`
}

// PointsHistoryPage is one cursor page of points ledger rows.
type PointsHistoryPage struct {
	Items      []models.PointsTransaction `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// CreditsHistoryPage is one cursor page of credits ledger rows.
type CreditsHistoryPage struct {
	Items      []models.CreditsTransaction `json:"items"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}
