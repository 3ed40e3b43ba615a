package types

import "github.com/shopspring/decimal"

// RoundMoney rounds a monetary amount to two decimal places.
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// PercentOf returns value * percent / 100.
func PercentOf(value, percent decimal.Decimal) decimal.Decimal {
	return value.Mul(percent).Div(decimal.NewFromInt(100))
}

// ApplyPercentChange returns value * (1 + percent/100).
func ApplyPercentChange(value, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(percent.Div(decimal.NewFromInt(100)))
	return value.Mul(factor)
}

// RoundToIncrement rounds value to the nearest multiple of increment. A zero
// or negative increment falls back to plain two-decimal rounding.
func RoundToIncrement(value, increment decimal.Decimal) decimal.Decimal {
	if increment.LessThanOrEqual(decimal.Zero) {
		return RoundMoney(value)
	}
	return value.Div(increment).Round(0).Mul(increment)
}

// Clamp constrains value into the optional [min, max] bounds.
func Clamp(value decimal.Decimal, min, max *decimal.Decimal) decimal.Decimal {
	if min != nil && value.LessThan(*min) {
		value = *min
	}
	if max != nil && value.GreaterThan(*max) {
		value = *max
	}
	return value
}
