package pawn

import (
	"github.com/shopspring/decimal"
)

// PresentDebt scaled debt at the current borrow index, rounded up so interest
// is never understated against the borrower.
func PresentDebt(scaledDebt, borrowIndex decimal.Decimal) decimal.Decimal {
	if !borrowIndex.IsPositive() {
		borrowIndex = one
	}

	return scaledDebt.Mul(borrowIndex).Shift(MaxPrecision).Ceil().Shift(-MaxPrecision)
}

// ScaleUp converts a drawn amount into scaled debt at the current index,
// rounded up: a draw may not record less debt than it moved.
func ScaleUp(amount, borrowIndex decimal.Decimal) decimal.Decimal {
	if !borrowIndex.IsPositive() {
		borrowIndex = one
	}

	return amount.Div(borrowIndex).Shift(MaxPrecision).Ceil().Shift(-MaxPrecision)
}

// ScaleDown converts a repaid amount into retired scaled debt, truncated: a
// repayment may not retire more scaled debt than it funded.
func ScaleDown(amount, borrowIndex decimal.Decimal) decimal.Decimal {
	if !borrowIndex.IsPositive() {
		borrowIndex = one
	}

	return amount.Div(borrowIndex).Truncate(MaxPrecision)
}

// FromBps basis points to a decimal ratio
func FromBps(bps int64) decimal.Decimal {
	return decimal.New(bps, -4)
}
