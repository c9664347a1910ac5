package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name string
		base int64
		pct  string
		want int64
	}{
		{"whole percent", 6000, "20", 1200},
		{"rounds half up", 1250, "10", 125},
		{"rounds to nearest", 333, "10", 33},
		{"half rounds away from zero", 50, "15", 8}, // 7.5 -> 8
		{"fractional rate", 10000, "8.875", 888},    // 887.5 -> 888
		{"zero base", 0, "20", 0},
		{"hundred percent", 6000, "100", 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct := decimal.RequireFromString(tt.pct)
			assert.Equal(t, tt.want, Percentage(tt.base, pct))
		})
	}
}

func TestTaxRoundTrip(t *testing.T) {
	rates := []string{"0", "5", "10", "20", "8.875", "19", "25"}
	prices := []int64{1, 99, 100, 101, 333, 6000, 12345, 999999}

	for _, r := range rates {
		rate := decimal.RequireFromString(r)
		for _, p := range prices {
			gross := GrossFrom(p, rate)
			back := NetFromGross(gross, rate)
			require.InDelta(t, p, back, 1, "rate %s price %d", r, p)
		}
	}
}

func TestIncludedTax(t *testing.T) {
	rate := decimal.NewFromInt(20)

	// 7200 gross at 20% contains 1200 tax.
	assert.Equal(t, int64(1200), IncludedTax(7200, rate))
	assert.Equal(t, int64(6000), NetFromGross(7200, rate))
}

func TestNetFromGross_ZeroDivisorGuard(t *testing.T) {
	assert.Equal(t, int64(500), NetFromGross(500, decimal.NewFromInt(-100)))
}

func TestFloorAtZero(t *testing.T) {
	assert.Equal(t, int64(0), FloorAtZero(-1))
	assert.Equal(t, int64(0), FloorAtZero(0))
	assert.Equal(t, int64(7), FloorAtZero(7))
}
