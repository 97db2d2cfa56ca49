package reserve

import (
	"context"
	"time"

	"pawnshop/core"
	"pawnshop/pkg/pawn"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

type reserveService struct {
	reserveStore core.IReserveStore
	rateStrategy core.IRateStrategy
}

// New new reserve service
func New(reserveStore core.IReserveStore, rateStrategy core.IRateStrategy) core.IReserveService {
	return &reserveService{
		reserveStore: reserveStore,
		rateStrategy: rateStrategy,
	}
}

// AccrueInterest advances both indices over the time elapsed since the last
// accrual and persists the reserve. Idempotent within a second.
func (s *reserveService) AccrueInterest(ctx context.Context, tx *db.DB, reserve *core.Reserve, at time.Time) error {
	s.accrue(ctx, reserve, at)
	s.refreshRates(reserve)

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *reserveService) Deposit(ctx context.Context, tx *db.DB, reserve *core.Reserve, amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	s.accrue(ctx, reserve, at)

	reserve.AvailableLiquidity = reserve.AvailableLiquidity.Add(amount)
	s.refreshRates(reserve)

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *reserveService) Withdraw(ctx context.Context, tx *db.DB, reserve *core.Reserve, amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	s.accrue(ctx, reserve, at)

	if reserve.AvailableLiquidity.LessThan(amount) {
		return core.ErrInsufficientLiquidity
	}

	reserve.AvailableLiquidity = reserve.AvailableLiquidity.Sub(amount)
	s.refreshRates(reserve)

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *reserveService) DrawDebt(ctx context.Context, tx *db.DB, reserve *core.Reserve, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	s.accrue(ctx, reserve, at)

	if reserve.AvailableLiquidity.LessThan(amount) {
		return decimal.Zero, core.ErrInsufficientLiquidity
	}

	scaledDelta := pawn.ScaleUp(amount, reserve.BorrowIndex)
	reserve.AvailableLiquidity = reserve.AvailableLiquidity.Sub(amount)
	reserve.TotalScaledDebt = reserve.TotalScaledDebt.Add(scaledDelta)
	s.refreshRates(reserve)

	if err := s.reserveStore.Update(ctx, tx, reserve); err != nil {
		return decimal.Zero, err
	}

	return scaledDelta, nil
}

func (s *reserveService) RepayDebt(ctx context.Context, tx *db.DB, reserve *core.Reserve, amount, scaledDelta decimal.Decimal, at time.Time) error {
	if amount.IsNegative() || scaledDelta.IsNegative() {
		return core.ErrInvalidAmount
	}

	s.accrue(ctx, reserve, at)

	reserve.AvailableLiquidity = reserve.AvailableLiquidity.Add(amount)
	reserve.TotalScaledDebt = reserve.TotalScaledDebt.Sub(scaledDelta)
	if reserve.TotalScaledDebt.IsNegative() {
		// rounding dust from per-loan ceils; clamp rather than carry a
		// negative aggregate
		reserve.TotalScaledDebt = decimal.Zero
	}
	s.refreshRates(reserve)

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *reserveService) accrue(ctx context.Context, reserve *core.Reserve, at time.Time) {
	if reserve.LastAccruedAt.IsZero() {
		reserve.LastAccruedAt = at
		return
	}

	elapsed := at.Sub(reserve.LastAccruedAt)
	if elapsed < time.Second {
		return
	}

	reserve.LiquidityIndex = pawn.CompoundIndex(reserve.LiquidityIndex, reserve.LiquidityRate, elapsed)
	reserve.BorrowIndex = pawn.CompoundIndex(reserve.BorrowIndex, reserve.BorrowRate, elapsed)
	reserve.LastAccruedAt = at

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"asset":        reserve.AssetID,
		"borrow_index": reserve.BorrowIndex,
	}).Debugln("interest accrued")
}

func (s *reserveService) refreshRates(reserve *core.Reserve) {
	utilization := pawn.UtilizationRate(reserve.AvailableLiquidity, reserve.TotalDebt())
	borrowRate := s.rateStrategy.BorrowRate(reserve, utilization)

	reserve.UtilizationRate = utilization
	reserve.BorrowRate = borrowRate
	reserve.LiquidityRate = s.rateStrategy.LiquidityRate(reserve, utilization, borrowRate)
}
