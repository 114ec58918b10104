package enums

import "fmt"

// PointsTransactionType classifies entries in the points ledger.
type PointsTransactionType string

const (
	PointsTxEarn   PointsTransactionType = "earn"
	PointsTxRedeem PointsTransactionType = "redeem"
	PointsTxExpire PointsTransactionType = "expire"
	PointsTxAdjust PointsTransactionType = "adjust"
)

var validPointsTxTypes = []PointsTransactionType{
	PointsTxEarn,
	PointsTxRedeem,
	PointsTxExpire,
	PointsTxAdjust,
}

func (p PointsTransactionType) String() string {
	return string(p)
}

func (p PointsTransactionType) IsValid() bool {
	for _, candidate := range validPointsTxTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePointsTransactionType converts raw input into a PointsTransactionType.
func ParsePointsTransactionType(value string) (PointsTransactionType, error) {
	for _, candidate := range validPointsTxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid points transaction type %q", value)
}

// CreditsTransactionType classifies entries in the store-credit ledger.
type CreditsTransactionType string

const (
	CreditsTxDeposit CreditsTransactionType = "deposit"
	CreditsTxSpend   CreditsTransactionType = "spend"
	CreditsTxRefund  CreditsTransactionType = "refund"
	CreditsTxAdjust  CreditsTransactionType = "adjust"
)

var validCreditsTxTypes = []CreditsTransactionType{
	CreditsTxDeposit,
	CreditsTxSpend,
	CreditsTxRefund,
	CreditsTxAdjust,
}

func (c CreditsTransactionType) String() string {
	return string(c)
}

func (c CreditsTransactionType) IsValid() bool {
	for _, candidate := range validCreditsTxTypes {
		if candidate == c {
			return true
		}
	}
	return false
}
