package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Reserve is the pool state of one fungible asset accepted as loan principal.
//
// LiquidityIndex and BorrowIndex scale principal into present value; both start
// at 1 and never decrease. AvailableLiquidity is the cash sitting in the pool,
// TotalScaledDebt the aggregate borrower debt recorded against BorrowIndex.
type Reserve struct {
	ID                 uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID            string          `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol             string          `sql:"size:20;unique_index:symbol_idx" json:"symbol"`
	AvailableLiquidity decimal.Decimal `sql:"type:decimal(32,16)" json:"available_liquidity"`
	TotalScaledDebt    decimal.Decimal `sql:"type:decimal(32,16)" json:"total_scaled_debt"`
	LiquidityIndex     decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"liquidity_index"`
	BorrowIndex        decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"borrow_index"`
	// current annualized rates, refreshed on every state-changing operation
	LiquidityRate   decimal.Decimal `sql:"type:decimal(20,16)" json:"liquidity_rate"`
	BorrowRate      decimal.Decimal `sql:"type:decimal(20,16)" json:"borrow_rate"`
	UtilizationRate decimal.Decimal `sql:"type:decimal(20,16)" json:"utilization_rate"`
	// jump-rate curve parameters, per year
	BaseRate       decimal.Decimal `sql:"type:decimal(20,8)" json:"base_rate"`
	Multiplier     decimal.Decimal `sql:"type:decimal(20,8)" json:"multiplier"`
	JumpMultiplier decimal.Decimal `sql:"type:decimal(20,8)" json:"jump_multiplier"`
	Kink           decimal.Decimal `sql:"type:decimal(20,8)" json:"kink"`
	// share of borrow interest withheld from suppliers (0, 1)
	ReserveFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"reserve_factor"`
	LastAccruedAt time.Time       `json:"last_accrued_at"`
	Version       int64           `sql:"default:0" json:"version"`
	CreatedAt     time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TotalDebt present-value debt of the reserve
func (r *Reserve) TotalDebt() decimal.Decimal {
	index := r.BorrowIndex
	if !index.IsPositive() {
		index = decimal.New(1, 0)
	}

	return r.TotalScaledDebt.Mul(index)
}

// IReserveStore reserve store interface
type IReserveStore interface {
	Create(ctx context.Context, tx *db.DB, reserve *Reserve) error
	Find(ctx context.Context, assetID string) (*Reserve, error)
	FindBySymbol(ctx context.Context, symbol string) (*Reserve, error)
	All(ctx context.Context) ([]*Reserve, error)
	Update(ctx context.Context, tx *db.DB, reserve *Reserve) error
}

// IRateStrategy derives the current rates from utilization. The curve itself is
// pluggable; the engine only requires that rates are non-negative.
type IRateStrategy interface {
	BorrowRate(reserve *Reserve, utilization decimal.Decimal) decimal.Decimal
	LiquidityRate(reserve *Reserve, utilization, borrowRate decimal.Decimal) decimal.Decimal
}

// IReserveService is the reserve accrual engine. Every mutating method accrues
// elapsed interest before touching balances, so scaled amounts are always
// recorded against a fresh index.
type IReserveService interface {
	AccrueInterest(ctx context.Context, tx *db.DB, reserve *Reserve, at time.Time) error
	Deposit(ctx context.Context, tx *db.DB, reserve *Reserve, amount decimal.Decimal, at time.Time) error
	Withdraw(ctx context.Context, tx *db.DB, reserve *Reserve, amount decimal.Decimal, at time.Time) error
	// DrawDebt moves amount from liquidity into debt and returns the scaled
	// debt delta recorded against the post-accrual borrow index.
	DrawDebt(ctx context.Context, tx *db.DB, reserve *Reserve, amount decimal.Decimal, at time.Time) (decimal.Decimal, error)
	// RepayDebt credits amount back to liquidity and retires scaledDelta of
	// scaled debt. Passing a zero amount extinguishes debt without proceeds.
	RepayDebt(ctx context.Context, tx *db.DB, reserve *Reserve, amount, scaledDelta decimal.Decimal, at time.Time) error
}
