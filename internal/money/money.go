package money

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var one = decimal.NewFromInt(1)

// FromString parses a decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round2 rounds to 2 decimal places (currency precision)
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// InclusiveTotal computes quantity * unitPrice without rounding.
// Unit prices carry up to 6 decimals; rounding happens only when the
// tax base is extracted.
func InclusiveTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

// BaseFromInclusive extracts the tax base from a tax-inclusive
// amount: round2(total / (1 + rate)). Rate is fractional (0.15 for
// 15%).
func BaseFromInclusive(total, rate decimal.Decimal) decimal.Decimal {
	return total.Div(one.Add(rate)).Round(2)
}

// Tax computes round2(base * rate). Rounded at the line level; the
// authority re-derives totals from the rounded lines and rejects
// float drift.
func Tax(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Round(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// Format2 renders with exactly 2 decimal places, as the schema
// requires for bases, values and totals.
func Format2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Format6 renders with exactly 6 decimal places, used for quantities
// and unit prices.
func Format6(d decimal.Decimal) string {
	return d.StringFixed(6)
}

// WithinCent reports whether a and b differ by at most 0.01. The
// inclusive-price rounding rule can move a reconstructed total one
// cent off the charged amount; that tolerance is documented, never
// hidden.
func WithinCent(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(decimal.New(1, -2))
}
