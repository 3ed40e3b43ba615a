package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func TestRoundToIncrement(t *testing.T) {
	cases := []struct {
		name      string
		value     string
		increment string
		want      string
	}{
		{"penny grid", "102.9897", "0.01", "102.99"},
		{"nickel grid", "102.9897", "0.05", "103.00"},
		{"whole units", "102.49", "1", "102"},
		{"zero increment falls back", "102.9897", "0", "102.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RoundToIncrement(dec(tc.value), dec(tc.increment))
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestApplyPercentChange(t *testing.T) {
	assert.True(t, ApplyPercentChange(dec("100"), dec("10")).Equal(dec("110")))
	assert.True(t, ApplyPercentChange(dec("100"), dec("-25")).Equal(dec("75")))
	assert.True(t, ApplyPercentChange(dec("100"), dec("0")).Equal(dec("100")))
}

func TestClamp(t *testing.T) {
	assert.True(t, Clamp(dec("5"), decPtr("10"), decPtr("20")).Equal(dec("10")))
	assert.True(t, Clamp(dec("25"), decPtr("10"), decPtr("20")).Equal(dec("20")))
	assert.True(t, Clamp(dec("15"), decPtr("10"), decPtr("20")).Equal(dec("15")))
	assert.True(t, Clamp(dec("15"), nil, nil).Equal(dec("15")))
}
