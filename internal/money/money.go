// Package money provides integer minor-unit (cents) arithmetic for order
// pricing. All stored monetary values are int64 cents; decimal.Decimal is
// used only for rate and percentage intermediates so that fractional tax
// rates (e.g. 8.875%) stay exact until the single rounding step.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round converts a decimal amount to cents, rounding half away from zero on
// the magnitude. Repeated recomputation of the same inputs always lands on
// the same cent value.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Percentage returns pct% of base in cents. The sign of the result follows
// the sign of base; pct is expected to be non-negative.
func Percentage(base int64, pct decimal.Decimal) int64 {
	return Round(decimal.NewFromInt(base).Mul(pct).Div(hundred))
}

// TaxOn returns the tax amount for a tax-exclusive price at the given rate
// (a percentage, e.g. 20 for 20%).
func TaxOn(netPrice int64, rate decimal.Decimal) int64 {
	return Percentage(netPrice, rate)
}

// GrossFrom returns the tax-inclusive price for a tax-exclusive price.
func GrossFrom(netPrice int64, rate decimal.Decimal) int64 {
	return netPrice + TaxOn(netPrice, rate)
}

// NetFromGross recovers the tax-exclusive price from a tax-inclusive one.
// GrossFrom and NetFromGross round-trip within one cent.
func NetFromGross(grossPrice int64, rate decimal.Decimal) int64 {
	divisor := hundred.Add(rate)
	if divisor.IsZero() {
		return grossPrice
	}
	return Round(decimal.NewFromInt(grossPrice).Mul(hundred).Div(divisor))
}

// IncludedTax returns the tax portion contained in a tax-inclusive price.
func IncludedTax(grossPrice int64, rate decimal.Decimal) int64 {
	return grossPrice - NetFromGross(grossPrice, rate)
}

// FloorAtZero clamps negative totals to zero. Discounts may not push an
// order total below zero.
func FloorAtZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
