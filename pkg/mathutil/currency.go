// Package mathutil provides common mathematical utility functions for money.
package mathutil

import (
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to cents, i.e. to represent real currency.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.CurrencyPlaces)
}

// FromFloat converts a configured float amount to a cent-rounded decimal.
func FromFloat(val float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(val))
}

// NonNegative clamps a value at zero.
func NonNegative(val decimal.Decimal) decimal.Decimal {
	if val.IsNegative() {
		return decimal.Zero
	}
	return val
}

// Max returns the larger of two values
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of two values
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Ratio returns numerator/denominator as a float. A zero denominator yields 0.
func Ratio(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	return numerator.Div(denominator).InexactFloat64()
}

// Share applies a proportion to a value and rounds the result to cents.
func Share(value decimal.Decimal, proportion float64) decimal.Decimal {
	return Round(value.Mul(decimal.NewFromFloat(proportion)))
}

// Annualize converts a monthly amount to a yearly one.
func Annualize(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(decimal.NewFromInt(constants.MonthsPerYear))
}
