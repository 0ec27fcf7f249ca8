package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"3000", 300000},
		{"3000.00", 300000},
		{"200.5", 20050},
		{"0.005", 1},
		{"0.004", 0},
		{"-12.345", -1235},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("2750.00").Equal(FromMinorUnits(275000)))
	assert.Equal(t, "2750.00", Format(275000))
	assert.Equal(t, "0.01", Format(1))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, int64(150000), Percent(300000, decimal.NewFromInt(50)))
	assert.Equal(t, int64(300000), Percent(300000, decimal.NewFromInt(100)))
	// 333.33 * 33.333% = 111.10889 -> 111.11
	assert.Equal(t, int64(11111), Percent(33333, decimal.RequireFromString("33.333")))
}
