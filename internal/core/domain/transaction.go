package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionReturn     TransactionType = "RETURN"
	TransactionUsage      TransactionType = "USAGE"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
	TransactionWaste      TransactionType = "WASTE"
)

// Transaction is one append-only ledger entry. Once applied it is immutable;
// a correction is always a new compensating entry, never an update.
type Transaction struct {
	ID             string
	ItemID         string
	Type           TransactionType
	QuantityChange decimal.Decimal // non-negative magnitude supplied by the caller
	AppliedDelta   decimal.Decimal // signed amount added to the balance, fixed at apply time
	Notes          string
	CreatedAt      time.Time
}

// DeltaFor maps a transaction type and magnitude to the signed balance delta.
// The caller never supplies a sign; PURCHASE, RETURN and ADJUSTMENT add stock,
// USAGE and WASTE consume it.
func DeltaFor(t TransactionType, quantityChange decimal.Decimal) (decimal.Decimal, error) {
	if quantityChange.IsNegative() {
		return decimal.Zero, ErrNegativeQuantity
	}

	switch t {
	case TransactionPurchase, TransactionReturn, TransactionAdjustment:
		return quantityChange, nil
	case TransactionUsage, TransactionWaste:
		return quantityChange.Neg(), nil
	default:
		return decimal.Zero, ErrInvalidTransactionType
	}
}
