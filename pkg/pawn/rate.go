package pawn

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	// SecondsPerYear accrual periods are measured in wall seconds
	SecondsPerYear = decimal.NewFromInt(31536000)
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	one = decimal.New(1, 0)
)

// UtilizationRate utilization rate
// utilization_rate = total_debt / (available_liquidity + total_debt)
func UtilizationRate(availableLiquidity, totalDebt decimal.Decimal) decimal.Decimal {
	total := availableLiquidity.Add(totalDebt)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return totalDebt.Div(total).Truncate(MaxPrecision)
}

// GetBorrowRate annualized borrow rate from the jump-rate curve
func GetBorrowRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink decimal.Decimal) decimal.Decimal {
	if kink.Equal(decimal.Zero) || utilizationRate.LessThanOrEqual(kink) {
		return utilizationRate.Mul(multiplier).Add(baseRate).Truncate(MaxPrecision)
	}

	normalRate := kink.Mul(multiplier).Add(baseRate)
	excessUtilRate := utilizationRate.Sub(kink)
	return excessUtilRate.Mul(jumpMultiplier).Add(normalRate).Truncate(MaxPrecision)
}

// GetLiquidityRate annualized rate paid to the pool
// liquidity_rate = utilization * borrow_rate * (1 - reserve_factor)
func GetLiquidityRate(utilizationRate, borrowRate, reserveFactor decimal.Decimal) decimal.Decimal {
	rateToPool := borrowRate.Mul(one.Sub(reserveFactor))
	return utilizationRate.Mul(rateToPool).Truncate(MaxPrecision)
}

// CompoundIndex advances an interest index over the elapsed period with linear
// per-period interest: index * (1 + rate * elapsed/year). Rates are
// non-negative, so indices never decrease.
func CompoundIndex(index, annualRate decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	if !index.IsPositive() {
		index = one
	}

	seconds := decimal.NewFromInt(int64(elapsed / time.Second))
	if seconds.LessThanOrEqual(decimal.Zero) || annualRate.LessThanOrEqual(decimal.Zero) {
		return index
	}

	factor := one.Add(annualRate.Mul(seconds).Div(SecondsPerYear))
	return index.Mul(factor).Truncate(MaxPrecision)
}
