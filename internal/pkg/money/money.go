package money

import "github.com/shopspring/decimal"

// ToMinorUnits converts a currency amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Percent returns pct percent of cents, rounded half away from zero.
func Percent(cents int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Format renders cents as a fixed two-decimal string.
func Format(cents int64) string {
	return FromMinorUnits(cents).StringFixed(2)
}
