// Package pricing computes order amounts as pure functions over cart lines.
// Amounts are integer currency units; discount arithmetic runs in decimal so
// recomputation never drifts. Callers recompute instead of caching.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/wpranata/kasirpos/internal/cart"
)

var oneHundred = decimal.NewFromInt(100)

// LineSubtotal returns qty x unit price less the line's discount percent,
// rounded half away from zero to whole currency units.
func LineSubtotal(line cart.Line) int64 {
	if line.Qty <= 0 {
		return 0
	}
	gross := decimal.NewFromInt(line.UnitPrice).Mul(decimal.NewFromInt(int64(line.Qty)))
	factor := oneHundred.Sub(line.DiscountPercent).Div(oneHundred)
	return gross.Mul(factor).Round(0).IntPart()
}

// CartTotal is the sum of the rounded line subtotals, so it always equals
// summing LineSubtotal over the same lines.
func CartTotal(lines []cart.Line) int64 {
	var total int64
	for _, line := range lines {
		total += LineSubtotal(line)
	}
	return total
}

// Change returns the amount owed back to the customer, floored at zero.
func Change(total, paymentAmount int64) int64 {
	if paymentAmount <= total {
		return 0
	}
	return paymentAmount - total
}

// IsPaymentSufficient reports whether the tendered amount covers the total.
func IsPaymentSufficient(total, paymentAmount int64) bool {
	return paymentAmount >= total
}
