package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDeltaFor_SignMapping(t *testing.T) {
	qty := decimal.NewFromInt(30)

	cases := []struct {
		txType TransactionType
		want   decimal.Decimal
	}{
		{TransactionPurchase, qty},
		{TransactionReturn, qty},
		{TransactionAdjustment, qty},
		{TransactionUsage, qty.Neg()},
		{TransactionWaste, qty.Neg()},
	}

	for _, tc := range cases {
		t.Run(string(tc.txType), func(t *testing.T) {
			delta, err := DeltaFor(tc.txType, qty)
			require.NoError(t, err)
			require.True(t, delta.Equal(tc.want), "expected %s, got %s", tc.want, delta)
		})
	}
}

func TestDeltaFor_UnknownType(t *testing.T) {
	_, err := DeltaFor(TransactionType("TRANSFER"), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestDeltaFor_NegativeMagnitude(t *testing.T) {
	_, err := DeltaFor(TransactionPurchase, decimal.NewFromInt(-5))
	require.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestDeltaFor_ZeroMagnitude(t *testing.T) {
	delta, err := DeltaFor(TransactionUsage, decimal.Zero)
	require.NoError(t, err)
	require.True(t, delta.IsZero())
}
