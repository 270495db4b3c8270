package loyalty

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPurchasePoints(t *testing.T) {
	require.Equal(t, 150, PurchasePoints(decimal.NewFromFloat(15.00)))
	require.Equal(t, 149, PurchasePoints(decimal.NewFromFloat(14.99)))
	require.Equal(t, 0, PurchasePoints(decimal.NewFromFloat(0.09)))
	require.Equal(t, 0, PurchasePoints(decimal.NewFromInt(-5)))
}

func TestRefundBonusPoints(t *testing.T) {
	// partial on a 15.00 order: floor(150 * 0.10) = 15
	require.Equal(t, 15, RefundBonusPoints(decimal.NewFromFloat(15.00), false))
	// full on the same order: floor(150 * 0.25) = 37
	require.Equal(t, 37, RefundBonusPoints(decimal.NewFromFloat(15.00), true))
	require.Equal(t, 0, RefundBonusPoints(decimal.Zero, true))
}
