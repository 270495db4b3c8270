package loyalty

import "github.com/shopspring/decimal"

// Accrual rate: 10 points per dollar spent.
const PointsPerDollar = 10

// Bonus multipliers applied to refund approvals.
var (
	fullRefundBonus    = decimal.NewFromFloat(0.25)
	partialRefundBonus = decimal.NewFromFloat(0.10)
)

// PurchasePoints is what a completed purchase earns: floor(total * 10).
func PurchasePoints(total decimal.Decimal) int {
	if total.IsNegative() {
		return 0
	}
	return int(total.Mul(decimal.NewFromInt(PointsPerDollar)).IntPart())
}

// RefundBonusPoints is the goodwill grant on an approved refund:
// floor(floor(orderTotal*10) * bonusPercent), where the percent depends on
// whether the approval was full or partial.
func RefundBonusPoints(orderTotal decimal.Decimal, full bool) int {
	base := decimal.NewFromInt(int64(PurchasePoints(orderTotal)))
	pct := partialRefundBonus
	if full {
		pct = fullRefundBonus
	}
	return int(base.Mul(pct).IntPart())
}
