package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     uint64
	}{
		{"minimal unit", "0.000001", 6, 1},
		{"whole amount", "1000", 6, 1000000000},
		{"floors below minimal unit", "0.0000019", 6, 1},
		{"floors fractional base units", "1.9999999", 6, 1999999},
		{"zero", "0", 6, 0},
		{"eighteen decimals", "1.5", 18, 1500000000000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			got, err := ToBaseUnits(d, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToBaseUnits_Negative(t *testing.T) {
	_, err := ToBaseUnits(decimal.NewFromFloat(-1), 6)
	assert.Error(t, err)
}

func TestParseToBaseUnits_Invalid(t *testing.T) {
	_, err := ParseToBaseUnits("not-a-number", 6)
	assert.Error(t, err)
}

func TestFromBaseUnits(t *testing.T) {
	assert.Equal(t, "1.5", FromBaseUnits(1500000, 6).String())
	assert.Equal(t, "0.000001", FromBaseUnits(1, 6).String())
	assert.Equal(t, "1000", FromBaseUnits(1000000000, 6).String())
}

func TestRoundTripUsesIntegerMath(t *testing.T) {
	// 0.1 + 0.2 style float noise must not leak into totals
	unit, err := ParseToBaseUnits("0.1", 6)
	require.NoError(t, err)

	var total uint64
	for i := 0; i < 3; i++ {
		total += unit
	}
	assert.Equal(t, "0.3", FromBaseUnits(total, 6).String())
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"25.5", "$25.50"},
		{"0", "$0.00"},
		{"-50.25", "-$50.25"},
		{"garbage", "N/A"},
		{"", "N/A"},
		{"1000", "$1000.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUSD(tt.in), "FormatUSD(%q)", tt.in)
	}
}
