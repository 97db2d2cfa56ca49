package reserve

import (
	"context"
	"testing"
	"time"

	"pawnshop/core"
	"pawnshop/internal/fakes"
	"pawnshop/pkg/pawn"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReserve(t *testing.T, store *fakes.ReserveStore, at time.Time) *core.Reserve {
	reserve := &core.Reserve{
		AssetID:        "asset-usdt",
		Symbol:         "USDT",
		LiquidityIndex: decimal.New(1, 0),
		BorrowIndex:    decimal.New(1, 0),
		BaseRate:       decimal.NewFromFloat(0.02),
		Multiplier:     decimal.NewFromFloat(0.2),
		JumpMultiplier: decimal.NewFromFloat(1.5),
		Kink:           decimal.NewFromFloat(0.8),
		ReserveFactor:  decimal.NewFromFloat(0.1),
		LastAccruedAt:  at,
	}
	require.Nil(t, store.Create(context.Background(), nil, reserve))
	return reserve
}

func TestReserveLifecycle(t *testing.T) {
	ctx := context.Background()
	store := fakes.NewReserveStore()
	service := New(store, pawn.NewJumpRateStrategy())

	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	reserve := newTestReserve(t, store, t0)

	require.Nil(t, service.Deposit(ctx, nil, reserve, decimal.NewFromInt(1000), t0))
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromInt(1000)))
	assert.True(t, reserve.UtilizationRate.IsZero())
	assert.True(t, reserve.BorrowRate.Equal(decimal.NewFromFloat(0.02)))

	scaled, err := service.DrawDebt(ctx, nil, reserve, decimal.NewFromInt(475), t0)
	require.Nil(t, err)
	assert.True(t, scaled.Equal(decimal.NewFromInt(475)), scaled.String())
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromInt(525)))
	assert.True(t, reserve.UtilizationRate.Equal(decimal.NewFromFloat(0.475)), reserve.UtilizationRate.String())
	// 0.02 + 0.475 * 0.2
	assert.True(t, reserve.BorrowRate.Equal(decimal.NewFromFloat(0.115)), reserve.BorrowRate.String())
	// 0.475 * 0.115 * 0.9
	assert.True(t, reserve.LiquidityRate.Equal(decimal.NewFromFloat(0.0491625)), reserve.LiquidityRate.String())

	// one full year of linear accrual
	t1 := t0.Add(365 * 24 * time.Hour)
	require.Nil(t, service.AccrueInterest(ctx, nil, reserve, t1))
	assert.True(t, reserve.BorrowIndex.Equal(decimal.NewFromFloat(1.115)), reserve.BorrowIndex.String())
	assert.True(t, reserve.LiquidityIndex.Equal(decimal.NewFromFloat(1.0491625)), reserve.LiquidityIndex.String())

	// repaying the whole debt brings utilization back to zero
	debt := reserve.TotalDebt()
	assert.True(t, debt.Equal(decimal.NewFromFloat(529.625)), debt.String())
	require.Nil(t, service.RepayDebt(ctx, nil, reserve, debt, scaled, t1))
	assert.True(t, reserve.TotalScaledDebt.IsZero())
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromFloat(1054.625)), reserve.AvailableLiquidity.String())
	assert.True(t, reserve.UtilizationRate.IsZero())

	assert.Equal(t, core.ErrInsufficientLiquidity, service.Withdraw(ctx, nil, reserve, decimal.NewFromInt(2000), t1))
	require.Nil(t, service.Withdraw(ctx, nil, reserve, decimal.NewFromFloat(1054.625), t1))
	assert.True(t, reserve.AvailableLiquidity.IsZero())
}

func TestReserveInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	store := fakes.NewReserveStore()
	service := New(store, pawn.NewJumpRateStrategy())

	t0 := time.Now()
	reserve := newTestReserve(t, store, t0)

	assert.Equal(t, core.ErrInvalidAmount, service.Deposit(ctx, nil, reserve, decimal.Zero, t0))
	assert.Equal(t, core.ErrInvalidAmount, service.Withdraw(ctx, nil, reserve, decimal.NewFromInt(-1), t0))

	_, err := service.DrawDebt(ctx, nil, reserve, decimal.Zero, t0)
	assert.Equal(t, core.ErrInvalidAmount, err)

	_, err = service.DrawDebt(ctx, nil, reserve, decimal.NewFromInt(10), t0)
	assert.Equal(t, core.ErrInsufficientLiquidity, err)

	// a zero-amount repayment may still retire scaled debt
	require.Nil(t, service.Deposit(ctx, nil, reserve, decimal.NewFromInt(100), t0))
	scaled, err := service.DrawDebt(ctx, nil, reserve, decimal.NewFromInt(40), t0)
	require.Nil(t, err)
	require.Nil(t, service.RepayDebt(ctx, nil, reserve, decimal.Zero, scaled, t0))
	assert.True(t, reserve.TotalScaledDebt.IsZero())
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromInt(60)))
}

func TestAccrueIdempotentWithinSecond(t *testing.T) {
	ctx := context.Background()
	store := fakes.NewReserveStore()
	service := New(store, pawn.NewJumpRateStrategy())

	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	reserve := newTestReserve(t, store, t0)
	require.Nil(t, service.Deposit(ctx, nil, reserve, decimal.NewFromInt(100), t0))

	index := reserve.BorrowIndex
	require.Nil(t, service.AccrueInterest(ctx, nil, reserve, t0.Add(500*time.Millisecond)))
	assert.True(t, reserve.BorrowIndex.Equal(index))
}
