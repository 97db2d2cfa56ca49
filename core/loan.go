package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// LoanState loan lifecycle state
type LoanState int

const (
	// LoanStateActive loan is open and accruing
	LoanStateActive LoanState = iota + 1
	// LoanStateAuction loan is collateral-short and up for bidding
	LoanStateAuction
	// LoanStateRepaid fully repaid, terminal
	LoanStateRepaid
	// LoanStateDefaulted liquidated to the winning bidder, terminal
	LoanStateDefaulted
)

func (s LoanState) String() string {
	switch s {
	case LoanStateActive:
		return "active"
	case LoanStateAuction:
		return "auction"
	case LoanStateRepaid:
		return "repaid"
	case LoanStateDefaulted:
		return "defaulted"
	}

	return "unknown"
}

// IsTerminal repaid and defaulted loans accept no further operations
func (s LoanState) IsTerminal() bool {
	return s == LoanStateRepaid || s == LoanStateDefaulted
}

// Loan one outstanding position per (collection, token) pair.
//
// ScaledDebt is recorded against the reserve's borrow index at the last debt
// mutation; present debt = ScaledDebt * current borrow index. The auction
// sub-state (Bidder, BidPrice, BidFine, FirstBidAt) is populated by the first
// accepted bid, not when the auction is triggered.
type Loan struct {
	ID             uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Borrower       string          `sql:"size:36;index:borrower_idx" json:"borrower"`
	ReserveAssetID string          `sql:"size:36;index:reserve_idx" json:"reserve_asset_id"`
	CollectionID   string          `sql:"size:36;index:collateral_idx" json:"collection_id"`
	TokenID        string          `sql:"size:64;index:collateral_idx" json:"token_id"`
	ScaledDebt     decimal.Decimal `sql:"type:decimal(32,16)" json:"scaled_debt"`
	State          LoanState       `sql:"default:1;index:state_idx" json:"state"`
	Bidder         string          `sql:"size:36" json:"bidder,omitempty"`
	BidPrice       decimal.Decimal `sql:"type:decimal(32,16)" json:"bid_price,omitempty"`
	BidFine        decimal.Decimal `sql:"type:decimal(32,16)" json:"bid_fine,omitempty"`
	AuctionedAt    sql.NullTime    `json:"auctioned_at,omitempty"`
	FirstBidAt     sql.NullTime    `json:"first_bid_at,omitempty"`
	Version        int64           `sql:"default:0" json:"version"`
	CreatedAt      time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// PresentDebt scaled debt at the given borrow index, rounded against the borrower
func (l *Loan) PresentDebt(borrowIndex decimal.Decimal) decimal.Decimal {
	if !borrowIndex.IsPositive() {
		borrowIndex = decimal.New(1, 0)
	}

	return l.ScaledDebt.Mul(borrowIndex).Shift(16).Ceil().Shift(-16)
}

// HasBid reports whether the auction sub-state is populated
func (l *Loan) HasBid() bool {
	return l.Bidder != ""
}

// ILoanStore loan store interface
type ILoanStore interface {
	Create(ctx context.Context, tx *db.DB, loan *Loan) error
	Find(ctx context.Context, id uint64) (*Loan, error)
	// FindLive returns the single non-terminal loan holding the collateral, if any
	FindLive(ctx context.Context, collectionID, tokenID string) (*Loan, error)
	FindByBorrower(ctx context.Context, borrower string) ([]*Loan, error)
	ListByState(ctx context.Context, state LoanState, limit int) ([]*Loan, error)
	All(ctx context.Context) ([]*Loan, error)
	Update(ctx context.Context, tx *db.DB, loan *Loan) error
}

// ILoanService owns the loan state machine. It is the only writer of Loan.State;
// the auction and redemption controllers go through it for transitions.
type ILoanService interface {
	Open(ctx context.Context, tx *db.DB, borrower, reserveAssetID, collectionID, tokenID string, amount decimal.Decimal, at time.Time) (*Loan, error)
	Repay(ctx context.Context, tx *db.DB, loanID uint64, amount decimal.Decimal, at time.Time) (*Loan, error)
	TriggerAuction(ctx context.Context, tx *db.DB, loanID uint64, at time.Time) (*Loan, error)
	Liquidate(ctx context.Context, tx *db.DB, loanID uint64, at time.Time) (*Loan, error)
	// HealthFactor prices the position without mutating anything
	HealthFactor(ctx context.Context, loan *Loan, at time.Time) (decimal.Decimal, error)
}

// IAuctionService accepts bids on loans in auction
type IAuctionService interface {
	Bid(ctx context.Context, tx *db.DB, loanID uint64, bidder string, price decimal.Decimal, at time.Time) (*Loan, error)
	MinBidPrice(ctx context.Context, loan *Loan, at time.Time) (decimal.Decimal, error)
}

// IRedeemService lets the borrower reclaim collateral during the redeem window
type IRedeemService interface {
	Redeem(ctx context.Context, tx *db.DB, loanID uint64, repayAmount, fineAmount decimal.Decimal, at time.Time) (*Loan, error)
}
