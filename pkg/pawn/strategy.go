package pawn

import (
	"pawnshop/core"

	"github.com/shopspring/decimal"
)

type jumpRateStrategy struct{}

// NewJumpRateStrategy rate strategy reading the jump-rate curve parameters off
// the reserve itself
func NewJumpRateStrategy() core.IRateStrategy {
	return &jumpRateStrategy{}
}

func (s *jumpRateStrategy) BorrowRate(reserve *core.Reserve, utilization decimal.Decimal) decimal.Decimal {
	return GetBorrowRate(utilization, reserve.BaseRate, reserve.Multiplier, reserve.JumpMultiplier, reserve.Kink)
}

func (s *jumpRateStrategy) LiquidityRate(reserve *core.Reserve, utilization, borrowRate decimal.Decimal) decimal.Decimal {
	return GetLiquidityRate(utilization, borrowRate, reserve.ReserveFactor)
}
