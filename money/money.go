// Package money implements base-unit arithmetic for token amounts.
// All totals are computed on integer base units derived from the token's
// decimal precision; display strings are derived from those integers, never
// the other way around.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a decimal amount to integer base units.
// Truncates (floors) at the minimal unit so float noise in the input can
// never overpay: 0.0000014 with 6 decimals yields 1, not 2.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}

	scaled := amount.Shift(decimals).Truncate(0)

	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows base units", amount)
	}
	return units.Uint64(), nil
}

// ParseToBaseUnits converts a decimal string to integer base units
func ParseToBaseUnits(amount string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return ToBaseUnits(d, decimals)
}

// FromBaseUnits converts integer base units back to a decimal amount
func FromBaseUnits(units uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(units).Shift(-decimals)
}

// FormatUSD renders a decimal dollar string for display:
// "25.5" becomes "$25.50", "-50.25" becomes "-$50.25".
// Unparseable input renders as "N/A".
func FormatUSD(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "N/A"
	}
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
