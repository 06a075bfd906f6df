// Package money performs ledger arithmetic on float64 amounts through decimal
// values so that every stored total is rounded the same way.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on every stored amount.
const Places = 2

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func out(d decimal.Decimal) float64 {
	return d.Round(Places).InexactFloat64()
}

// Round rounds v half away from zero to Places digits.
func Round(v float64) float64 {
	return out(dec(v))
}

// Add returns a + b.
func Add(a, b float64) float64 {
	return out(dec(a).Add(dec(b)))
}

// Sub returns a - b.
func Sub(a, b float64) float64 {
	return out(dec(a).Sub(dec(b)))
}

// Mul returns a * b.
func Mul(a, b float64) float64 {
	return out(dec(a).Mul(dec(b)))
}

// Sum adds every value in vs.
func Sum(vs ...float64) float64 {
	total := decimal.Zero
	for _, v := range vs {
		total = total.Add(dec(v))
	}
	return out(total)
}

// Cmp compares a and b after rounding: -1 if a < b, 0 if equal, +1 if a > b.
func Cmp(a, b float64) int {
	return dec(a).Round(Places).Cmp(dec(b).Round(Places))
}

// Equal reports whether a and b are the same amount after rounding.
func Equal(a, b float64) bool {
	return Cmp(a, b) == 0
}

// IsNegative reports whether v rounds to a value below zero.
func IsNegative(v float64) bool {
	return dec(v).Round(Places).IsNegative()
}

// Finite reports whether v is usable as an amount (not NaN or ±Inf).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
