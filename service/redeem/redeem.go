package redeem

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pawnshop/core"
	"pawnshop/pkg/id"
	"pawnshop/pkg/pawn"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type redeemService struct {
	loanStore       core.ILoanStore
	collateralStore core.ICollateralStore
	reserveStore    core.IReserveStore
	reserveService  core.IReserveService
	transferStore   core.ITransferStore
	clock           core.AuctionClock
}

// New new redeem service
func New(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
	clock core.AuctionClock,
) core.IRedeemService {
	return &redeemService{
		loanStore:       loanStore,
		collateralStore: collateralStore,
		reserveStore:    reserveStore,
		reserveService:  reserveService,
		transferStore:   transferStore,
		clock:           clock,
	}
}

// Redeem pulls an auctioned loan back to active. The repayment must clear the
// redeem threshold and the fine must cover the fine fixed at the first bid;
// the standing bid's escrow plus the fine go back to the bidder. Repaying the
// whole debt closes the loan instead.
func (s *redeemService) Redeem(ctx context.Context, tx *db.DB, loanID uint64, repayAmount, fineAmount decimal.Decimal, at time.Time) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "redeem")

	if !repayAmount.IsPositive() || fineAmount.IsNegative() {
		return nil, core.ErrInvalidAmount
	}

	loan, err := s.loanStore.Find(ctx, loanID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrLoanNotFound
		}
		return nil, err
	}

	if loan.State != core.LoanStateAuction {
		return nil, core.ErrInvalidLoanState
	}

	config, err := s.collateralStore.Find(ctx, loan.CollectionID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrCollateralNotFound
		}
		return nil, err
	}

	if at.After(s.redeemAnchor(loan).Add(config.RedeemWindow())) {
		return nil, core.ErrRedeemWindowExpired
	}

	reserve, err := s.reserveStore.Find(ctx, loan.ReserveAssetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrReserveNotFound
		}
		return nil, err
	}

	if err := s.reserveService.AccrueInterest(ctx, tx, reserve, at); err != nil {
		return nil, err
	}

	presentDebt := loan.PresentDebt(reserve.BorrowIndex)
	if repayAmount.LessThan(pawn.MinRedeemAmount(presentDebt, config.RedeemThreshold)) {
		return nil, core.ErrInsufficientRedeemAmount
	}

	if loan.HasBid() && fineAmount.LessThan(loan.BidFine) {
		return nil, core.ErrInsufficientFine
	}

	applied := decimal.Min(repayAmount, presentDebt)
	refund := repayAmount.Sub(applied)
	if loan.HasBid() {
		refund = refund.Add(fineAmount.Sub(loan.BidFine))
	} else {
		refund = refund.Add(fineAmount)
	}

	var scaledDelta decimal.Decimal
	if applied.GreaterThanOrEqual(presentDebt) {
		scaledDelta = loan.ScaledDebt
	} else {
		scaledDelta = pawn.ScaleDown(applied, reserve.BorrowIndex)
	}

	if err := s.reserveService.RepayDebt(ctx, tx, reserve, applied, scaledDelta, at); err != nil {
		return nil, err
	}

	// the escrow goes back to the displaced bidder along with the fine,
	// which passes straight through from the borrower's payment
	if loan.HasBid() {
		if err := s.reserveService.Withdraw(ctx, tx, reserve, loan.BidPrice, at); err != nil {
			return nil, err
		}

		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:redeem-escrow:%d", loan.ID, loan.Version)),
			Kind:       core.TransferKindFungible,
			OpponentID: loan.Bidder,
			AssetID:    reserve.AssetID,
			Amount:     loan.BidPrice.Add(loan.BidFine),
		}); err != nil {
			return nil, err
		}
	}

	bidder := loan.Bidder
	loan.Bidder = ""
	loan.BidPrice = decimal.Zero
	loan.BidFine = decimal.Zero
	loan.AuctionedAt = sql.NullTime{}
	loan.FirstBidAt = sql.NullTime{}
	loan.ScaledDebt = loan.ScaledDebt.Sub(scaledDelta)
	if !loan.ScaledDebt.IsPositive() {
		loan.ScaledDebt = decimal.Zero
		loan.State = core.LoanStateRepaid
	} else {
		loan.State = core.LoanStateActive
	}

	if err := s.loanStore.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	if refund.IsPositive() {
		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:redeem-refund:%d", loan.ID, loan.Version)),
			Kind:       core.TransferKindFungible,
			OpponentID: loan.Borrower,
			AssetID:    reserve.AssetID,
			Amount:     refund,
		}); err != nil {
			return nil, err
		}
	}

	if loan.State == core.LoanStateRepaid {
		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:      id.TraceIDFrom(fmt.Sprintf("loan:%d:collateral:repaid", loan.ID)),
			Kind:         core.TransferKindCollateral,
			OpponentID:   loan.Borrower,
			CollectionID: loan.CollectionID,
			TokenID:      loan.TokenID,
		}); err != nil {
			return nil, err
		}
	}

	log.WithField("loan", loan.ID).WithField("bidder", bidder).Infoln("loan redeemed")
	return loan, nil
}

// redeemAnchor with the first-bid clock an auction nobody bid on anchors to
// the trigger, so an unwanted position can still be pulled back
func (s *redeemService) redeemAnchor(loan *core.Loan) time.Time {
	if s.clock == core.AuctionClockTrigger || !loan.FirstBidAt.Valid {
		return loan.AuctionedAt.Time
	}

	return loan.FirstBidAt.Time
}
