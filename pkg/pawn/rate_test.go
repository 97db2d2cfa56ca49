package pawn

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtilizationRate(t *testing.T) {
	assert.True(t, UtilizationRate(decimal.NewFromInt(600), decimal.NewFromInt(400)).Equal(decimal.NewFromFloat(0.4)))
	assert.True(t, UtilizationRate(decimal.NewFromInt(100), decimal.Zero).Equal(decimal.Zero))
	assert.True(t, UtilizationRate(decimal.Zero, decimal.Zero).Equal(decimal.Zero))
}

func TestGetBorrowRate(t *testing.T) {
	base := decimal.NewFromFloat(0.02)
	multiplier := decimal.NewFromFloat(0.2)
	jump := decimal.NewFromFloat(2)
	kink := decimal.NewFromFloat(0.8)

	// below the kink: base + u * multiplier
	below := GetBorrowRate(decimal.NewFromFloat(0.5), base, multiplier, jump, kink)
	assert.True(t, below.Equal(decimal.NewFromFloat(0.12)), below.String())

	// above the kink the jump slope applies to the excess
	above := GetBorrowRate(decimal.NewFromFloat(0.9), base, multiplier, jump, kink)
	assert.True(t, above.Equal(decimal.NewFromFloat(0.38)), above.String())

	// zero kink degrades to the single-slope curve
	flat := GetBorrowRate(decimal.NewFromFloat(0.9), base, multiplier, jump, decimal.Zero)
	assert.True(t, flat.Equal(decimal.NewFromFloat(0.2)), flat.String())
}

func TestGetLiquidityRate(t *testing.T) {
	rate := GetLiquidityRate(decimal.NewFromFloat(0.5), decimal.NewFromFloat(0.12), decimal.NewFromFloat(0.1))
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.054)), rate.String())
}

func TestCompoundIndex(t *testing.T) {
	index := decimal.New(1, 0)
	rate := decimal.NewFromFloat(0.1)

	grown := CompoundIndex(index, rate, 365*24*time.Hour)
	require.True(t, grown.Equal(decimal.NewFromFloat(1.1)), grown.String())

	// zero elapsed or zero rate leaves the index untouched
	assert.True(t, CompoundIndex(grown, rate, 0).Equal(grown))
	assert.True(t, CompoundIndex(grown, decimal.Zero, time.Hour).Equal(grown))

	// indices never decrease across repeated accruals
	prev := index
	at := prev
	for i := 0; i < 10; i++ {
		at = CompoundIndex(at, rate, 13*time.Second)
		assert.True(t, at.GreaterThanOrEqual(prev))
		prev = at
	}

	// an unset index starts at 1
	assert.True(t, CompoundIndex(decimal.Zero, decimal.Zero, 0).Equal(decimal.New(1, 0)))
}
