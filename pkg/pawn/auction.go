package pawn

import (
	"github.com/shopspring/decimal"
)

// MinBidPrice minimum acceptable first bid, in reserve-asset units: collateral
// value discounted by the liquidation bonus, converted at the reserve price.
func MinBidPrice(collateralValue decimal.Decimal, liquidationBonusBps int64, reservePrice decimal.Decimal) decimal.Decimal {
	if !reservePrice.IsPositive() {
		return decimal.Zero
	}

	discounted := collateralValue.Mul(one.Sub(FromBps(liquidationBonusBps)))
	return discounted.Div(reservePrice).Truncate(MaxPrecision)
}

// MinNextBid floor for outbidding the standing bid. A zero increment still
// requires a strictly greater price, enforced by the caller.
func MinNextBid(currentBid decimal.Decimal, bidIncrementBps int64) decimal.Decimal {
	return currentBid.Mul(one.Add(FromBps(bidIncrementBps))).Truncate(MaxPrecision)
}

// BidFine the fine fixed at the first accepted bid: a cut of the bid price,
// floored by a cut of the outstanding debt.
func BidFine(bidPrice, presentDebt decimal.Decimal, redeemFineBps, minBidFineBps int64) decimal.Decimal {
	fine := bidPrice.Mul(FromBps(redeemFineBps))
	if floor := presentDebt.Mul(FromBps(minBidFineBps)); floor.GreaterThan(fine) {
		fine = floor
	}

	return fine.Shift(MaxPrecision).Ceil().Shift(-MaxPrecision)
}

// MinRedeemAmount smallest repayment a redemption must carry
func MinRedeemAmount(presentDebt decimal.Decimal, redeemThresholdBps int64) decimal.Decimal {
	return presentDebt.Mul(FromBps(redeemThresholdBps)).Shift(MaxPrecision).Ceil().Shift(-MaxPrecision)
}
