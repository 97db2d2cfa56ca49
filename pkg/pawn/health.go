package pawn

import (
	"github.com/shopspring/decimal"
)

// MaxHealthFactor sentinel returned for debt-free positions
var MaxHealthFactor = decimal.New(1, 18)

// HealthFactor ratio of threshold-discounted collateral value to debt value.
// Exactly 1 when collateral discounted by the liquidation threshold equals
// debt; safe strictly above 1.
func HealthFactor(collateralValue, debtValue decimal.Decimal, liquidationThresholdBps int64) decimal.Decimal {
	if debtValue.LessThanOrEqual(decimal.Zero) {
		return MaxHealthFactor
	}

	discounted := collateralValue.Mul(FromBps(liquidationThresholdBps))
	return discounted.Div(debtValue).Truncate(MaxPrecision)
}
