// Package mathutil provides common monetary arithmetic helpers.
package mathutil

import (
	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(constants.PercentageMultiplier)

// Round rounds a value half-up to two decimals, i.e. to represent real
// currency. decimal.Round rounds half away from zero, which is half-up for the
// non-negative amounts the engine works with.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.CurrencyDecimalPlaces)
}

// ClampZero returns val, or zero when val is negative.
func ClampZero(val decimal.Decimal) decimal.Decimal {
	if val.IsNegative() {
		return decimal.Zero
	}
	return val
}

// RateFraction converts a percentage per period into a fraction, e.g. 2 -> 0.02.
func RateFraction(percentage decimal.Decimal) decimal.Decimal {
	return percentage.Div(hundred)
}

// ApplyPercentage applies a percentage to a value and rounds to cents.
func ApplyPercentage(value, percentage decimal.Decimal) decimal.Decimal {
	return Round(value.Mul(percentage).Div(hundred))
}

// FromFloat converts a float config value into a cent-rounded decimal.
func FromFloat(val float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(val))
}
