package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeFirstOrderDiscount(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00"), DiscountPercent: decimal.Zero}}

	comp := Compute(lines, 0, 0, nil)
	require.True(t, comp.CartTotal.Equal(dec("20.00")), "cartTotal=%s", comp.CartTotal)
	require.Equal(t, 25, comp.DiscountPercent)
	require.True(t, comp.DiscountedTotal.Equal(dec("15.00")), "discountedTotal=%s", comp.DiscountedTotal)
	require.True(t, comp.PayableTotal.Equal(dec("15.00")))

	comp = Compute(lines, 3, 0, nil)
	require.Equal(t, 0, comp.DiscountPercent)
	require.True(t, comp.DiscountedTotal.Equal(dec("20.00")))
}

func TestComputeLineDiscount(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", Quantity: 3, UnitPrice: dec("4.50"), DiscountPercent: dec("10")},
		{ProductID: "p2", Quantity: 1, UnitPrice: dec("2.35"), DiscountPercent: decimal.Zero},
	}
	comp := Compute(lines, 1, 0, nil)
	// 4.50*0.9 = 4.05 -> 12.15, plus 2.35 = 14.50
	require.True(t, comp.CartTotal.Equal(dec("14.50")), "cartTotal=%s", comp.CartTotal)
}

func TestComputePointRedemptionClamp(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00")}}

	// discountedTotal = 15.00; 200 requested points ($20) clamp to 149 ($14.90)
	comp := Compute(lines, 0, 200, nil)
	require.Equal(t, 149, comp.LoyaltyPointsUsed)
	require.True(t, comp.LoyaltyDiscount.Equal(dec("14.90")), "loyaltyDiscount=%s", comp.LoyaltyDiscount)
	require.True(t, comp.PayableTotal.Equal(dec("0.10")), "payableTotal=%s", comp.PayableTotal)
}

func TestComputePointRedemptionWithinBalance(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00")}}

	comp := Compute(lines, 1, 50, nil)
	require.Equal(t, 50, comp.LoyaltyPointsUsed)
	require.True(t, comp.LoyaltyDiscount.Equal(dec("5.00")))
	require.True(t, comp.PayableTotal.Equal(dec("15.00")))
}

func TestComputeRefundCredit(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("10.00")}}

	comp := Compute(lines, 0, 0, &CreditOption{ID: "c1", Amount: dec("5.00")})
	require.True(t, comp.RefundCreditAmount.Equal(dec("5.00")))
	require.Equal(t, "c1", comp.RefundCreditID)
	require.True(t, comp.PayableTotal.Equal(dec("10.00")), "payableTotal=%s", comp.PayableTotal)
}

func TestComputeCreditClampedToRemainder(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.00")}}

	// discounted 7.50, points cover 7.40, credit of 50 clamps to 0.10
	comp := Compute(lines, 0, 74, &CreditOption{ID: "c1", Amount: dec("50.00")})
	require.True(t, comp.LoyaltyDiscount.Equal(dec("7.40")))
	require.True(t, comp.RefundCreditAmount.Equal(dec("0.10")), "creditAmount=%s", comp.RefundCreditAmount)
	require.True(t, comp.PayableTotal.Equal(decimal.Zero), "payableTotal=%s", comp.PayableTotal)
}

func TestComputeInvariants(t *testing.T) {
	cases := []struct {
		name   string
		lines  []Line
		prior  int
		points int
		credit *CreditOption
	}{
		{"plain", []Line{{Quantity: 1, UnitPrice: dec("0.99")}}, 2, 0, nil},
		{"greedy points", []Line{{Quantity: 5, UnitPrice: dec("3.33")}}, 0, 100000, nil},
		{"big credit", []Line{{Quantity: 1, UnitPrice: dec("1.00")}}, 1, 0, &CreditOption{ID: "c", Amount: dec("999.00")}},
		{"points and credit", []Line{{Quantity: 4, UnitPrice: dec("12.75"), DiscountPercent: dec("5")}}, 0, 300, &CreditOption{ID: "c", Amount: dec("20.00")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comp := Compute(tc.lines, tc.prior, tc.points, tc.credit)
			require.False(t, comp.PayableTotal.IsNegative(), "payable went negative: %s", comp.PayableTotal)
			require.True(t, comp.PayableTotal.LessThanOrEqual(comp.DiscountedTotal))
			if tc.points > 0 {
				require.Less(t, comp.LoyaltyPointsUsed, int(comp.DiscountedTotal.Mul(decimal.NewFromInt(10)).IntPart())+1)
			}
		})
	}
}

func TestMaxRedeemablePoints(t *testing.T) {
	require.Equal(t, 149, MaxRedeemablePoints(dec("15.00")))
	require.Equal(t, 0, MaxRedeemablePoints(dec("0.10")))
	require.Equal(t, 0, MaxRedeemablePoints(decimal.Zero))
	require.Equal(t, 8, MaxRedeemablePoints(dec("0.99")))
}
