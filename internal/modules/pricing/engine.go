package pricing

import (
	"github.com/shopspring/decimal"
)

// Points convert to currency at a fixed 10 points = $1.
const PointsPerDollar = 10

// Flat percentage applied to a user's first order.
const FirstOrderDiscountPercent = 25

var (
	hundred   = decimal.NewFromInt(100)
	pointRate = decimal.NewFromInt(PointsPerDollar)
)

// Line is one cart line as priced at quote time. DiscountPercent is the
// per-product promotional discount in [0,100).
type Line struct {
	ProductID       string
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// DiscountedUnitPrice applies the line discount, rounded to 2 decimals.
func (l Line) DiscountedUnitPrice() decimal.Decimal {
	factor := hundred.Sub(l.DiscountPercent).Div(hundred)
	return l.UnitPrice.Mul(factor).Round(2)
}

// Total is the discounted unit price times the quantity.
func (l Line) Total() decimal.Decimal {
	return l.DiscountedUnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// CreditOption is an available store credit offered against this checkout.
type CreditOption struct {
	ID     string
	Amount decimal.Decimal
}

// Computation is the authoritative price breakdown for one checkout.
// PayableTotal is what the payment adapter is asked to capture.
type Computation struct {
	CartTotal          decimal.Decimal
	DiscountPercent    int
	DiscountedTotal    decimal.Decimal
	LoyaltyPointsUsed  int
	LoyaltyDiscount    decimal.Decimal
	RefundCreditAmount decimal.Decimal
	RefundCreditID     string
	PayableTotal       decimal.Decimal
}

// Compute derives the payable total from the cart lines.
//
// Stage order matters: first-order discount, then loyalty redemption, then
// refund credit, each subtraction rounded to 2 decimals before the next so
// rounding drift never compounds past a cent.
//
// requestedPoints must already be clamped to the user's balance by the
// caller; this engine only clamps against the order value so a point
// redemption can never zero out the payable total on its own.
func Compute(lines []Line, priorOrders int, requestedPoints int, credit *CreditOption) Computation {
	cartTotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		cartTotal = cartTotal.Add(l.Total())
	}
	cartTotal = cartTotal.Round(2)

	comp := Computation{CartTotal: cartTotal}

	discounted := cartTotal
	if priorOrders == 0 {
		comp.DiscountPercent = FirstOrderDiscountPercent
		factor := hundred.Sub(decimal.NewFromInt(FirstOrderDiscountPercent)).Div(hundred)
		discounted = cartTotal.Mul(factor).Round(2)
	}
	comp.DiscountedTotal = discounted

	points := requestedPoints
	if points > 0 {
		if max := MaxRedeemablePoints(discounted); points > max {
			points = max
		}
	}
	if points < 0 {
		points = 0
	}
	comp.LoyaltyPointsUsed = points
	comp.LoyaltyDiscount = decimal.NewFromInt(int64(points)).Div(pointRate).Round(2)

	afterPoints := discounted.Sub(comp.LoyaltyDiscount).Round(2)
	if afterPoints.IsNegative() {
		afterPoints = decimal.Zero
	}

	comp.RefundCreditAmount = decimal.Zero
	if credit != nil && credit.Amount.IsPositive() {
		offset := credit.Amount
		if offset.GreaterThan(afterPoints) {
			offset = afterPoints
		}
		comp.RefundCreditAmount = offset.Round(2)
		comp.RefundCreditID = credit.ID
	}

	payable := afterPoints.Sub(comp.RefundCreditAmount).Round(2)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	comp.PayableTotal = payable

	return comp
}

// MaxRedeemablePoints is the redemption ceiling for an order of the given
// discounted total: one point short of covering the whole amount.
func MaxRedeemablePoints(discountedTotal decimal.Decimal) int {
	max := int(discountedTotal.Mul(pointRate).IntPart()) - 1
	if max < 0 {
		return 0
	}
	return max
}
