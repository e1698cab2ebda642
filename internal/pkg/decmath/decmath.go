// Package decmath wraps shopspring/decimal for money math, keeping binary
// float drift out of funds and risk comparisons.
package decmath

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

func fromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Cmp compares two amounts exactly.
func Cmp(a, b float64) int { return fromFloat(a).Cmp(fromFloat(b)) }

func GT(a, b float64) bool { return Cmp(a, b) > 0 }

func GTE(a, b float64) bool { return Cmp(a, b) >= 0 }

func LT(a, b float64) bool { return Cmp(a, b) < 0 }

func LTE(a, b float64) bool { return Cmp(a, b) <= 0 }

// Mul multiplies two amounts.
func Mul(a, b float64) float64 {
	return toFloat(fromFloat(a).Mul(fromFloat(b)))
}

// AddPct inflates value by pct percent (pct=1 → ×1.01).
func AddPct(value, pct float64) float64 {
	if pct <= 0 {
		return value
	}
	factor := decOne.Add(fromFloat(pct).Div(decHundred))
	return toFloat(fromFloat(value).Mul(factor))
}

// PctOf returns part/whole×100. A non-positive whole yields 0.
func PctOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return toFloat(fromFloat(part).Div(fromFloat(whole)).Mul(decHundred))
}

// FloorUnits floors a fractional unit count to whole units.
// Non-finite and non-positive inputs yield 0.
func FloorUnits(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return math.Floor(v)
}

// ScaleUnits returns floor(units × num/den) whole units.
// A non-positive den yields 0.
func ScaleUnits(units, num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	scaled := fromFloat(units).Mul(fromFloat(num)).Div(fromFloat(den))
	return FloorUnits(toFloat(scaled))
}
