package loan

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

type loanService struct {
	loanStore       core.ILoanStore
	collateralStore core.ICollateralStore
	reserveStore    core.IReserveStore
	reserveService  core.IReserveService
	transferStore   core.ITransferStore
	oracle          core.IPriceOracleService
	clock           core.AuctionClock
}

// New new loan service
func New(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
	oracle core.IPriceOracleService,
	clock core.AuctionClock,
) core.ILoanService {
	return &loanService{
		loanStore:       loanStore,
		collateralStore: collateralStore,
		reserveStore:    reserveStore,
		reserveService:  reserveService,
		transferStore:   transferStore,
		oracle:          oracle,
		clock:           clock,
	}
}

// Open draws amount from the reserve against the pledged collateral. The draw
// is capped by the collection's loan-to-value ratio at the current oracle
// prices; the principal payout is scheduled in the same transaction.
func (s *loanService) Open(ctx context.Context, tx *db.DB, borrower, reserveAssetID, collectionID, tokenID string, amount decimal.Decimal, at time.Time) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "loan.open")

	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	config, err := s.findConfig(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.loanStore.FindLive(ctx, collectionID, tokenID); err == nil {
		return nil, core.ErrCollateralInUse
	} else if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	reserve, err := s.findReserve(ctx, reserveAssetID)
	if err != nil {
		return nil, err
	}

	collateralValue, reservePrice, err := s.prices(ctx, config.CollectionID, reserve.AssetID, at)
	if err != nil {
		return nil, err
	}

	drawValue := amount.Mul(reservePrice)
	if drawValue.GreaterThan(collateralValue.Mul(pawn.FromBps(config.LTV))) {
		return nil, core.ErrExceedMaxLoan
	}

	if err := s.reserveService.AccrueInterest(ctx, tx, reserve, at); err != nil {
		return nil, err
	}

	if pawn.HealthFactor(collateralValue, drawValue, config.LiquidationThreshold).LessThan(decimal.New(1, 0)) {
		return nil, core.ErrInvalidHealthFactor
	}

	scaledDelta, err := s.reserveService.DrawDebt(ctx, tx, reserve, amount, at)
	if err != nil {
		return nil, err
	}

	loan := &core.Loan{
		Borrower:       borrower,
		ReserveAssetID: reserve.AssetID,
		CollectionID:   collectionID,
		TokenID:        tokenID,
		ScaledDebt:     scaledDelta,
		State:          core.LoanStateActive,
	}
	if err := s.loanStore.Create(ctx, tx, loan); err != nil {
		return nil, err
	}

	memo, _ := core.NewAction().
		With(core.ActionKeyService, core.ActionServiceBorrow).
		With(core.ActionKeyLoan, fmt.Sprint(loan.ID)).
		Format()
	if err := s.transferStore.Create(ctx, tx, &core.Transfer{
		TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:payout", loan.ID)),
		Kind:       core.TransferKindFungible,
		OpponentID: borrower,
		AssetID:    reserve.AssetID,
		Amount:     amount,
		Memo:       memo,
	}); err != nil {
		return nil, err
	}

	log.WithField("loan", loan.ID).Infoln("loan opened")
	return loan, nil
}

// Repay applies amount to the outstanding debt of an active loan. Overpayment
// is refunded; a full repayment closes the loan and returns the collateral.
func (s *loanService) Repay(ctx context.Context, tx *db.DB, loanID uint64, amount decimal.Decimal, at time.Time) (*core.Loan, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.State != core.LoanStateActive {
		return nil, core.ErrInvalidLoanState
	}

	reserve, err := s.findReserve(ctx, loan.ReserveAssetID)
	if err != nil {
		return nil, err
	}

	if err := s.reserveService.AccrueInterest(ctx, tx, reserve, at); err != nil {
		return nil, err
	}

	presentDebt := loan.PresentDebt(reserve.BorrowIndex)
	applied := decimal.Min(amount, presentDebt)
	refund := amount.Sub(applied)

	var scaledDelta decimal.Decimal
	if applied.GreaterThanOrEqual(presentDebt) {
		scaledDelta = loan.ScaledDebt
	} else {
		scaledDelta = pawn.ScaleDown(applied, reserve.BorrowIndex)
	}

	if err := s.reserveService.RepayDebt(ctx, tx, reserve, applied, scaledDelta, at); err != nil {
		return nil, err
	}

	loan.ScaledDebt = loan.ScaledDebt.Sub(scaledDelta)
	if !loan.ScaledDebt.IsPositive() {
		loan.ScaledDebt = decimal.Zero
		loan.State = core.LoanStateRepaid
	}
	if err := s.loanStore.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	if refund.IsPositive() {
		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:repay-refund:%d", loan.ID, loan.Version)),
			Kind:       core.TransferKindFungible,
			OpponentID: loan.Borrower,
			AssetID:    reserve.AssetID,
			Amount:     refund,
		}); err != nil {
			return nil, err
		}
	}

	if loan.State == core.LoanStateRepaid {
		if err := s.returnCollateral(ctx, tx, loan, loan.Borrower, "repaid"); err != nil {
			return nil, err
		}
	}

	return loan, nil
}

// TriggerAuction moves an unhealthy active loan into auction. The caller is
// anyone; health is rechecked here so stale triggers fail closed.
func (s *loanService) TriggerAuction(ctx context.Context, tx *db.DB, loanID uint64, at time.Time) (*core.Loan, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.State != core.LoanStateActive {
		return nil, core.ErrInvalidLoanState
	}

	health, err := s.HealthFactor(ctx, loan, at)
	if err != nil {
		return nil, err
	}
	if health.GreaterThanOrEqual(decimal.New(1, 0)) {
		return nil, core.ErrInvalidHealthFactor
	}

	loan.State = core.LoanStateAuction
	loan.AuctionedAt = sql.NullTime{Time: at, Valid: true}
	if err := s.loanStore.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("loan", loan.ID).Infoln("auction triggered")
	return loan, nil
}

// Liquidate settles an expired auction: the standing bid's escrow retires the
// debt, the collateral goes to the bidder, and any escrow above the debt is
// returned to the borrower.
func (s *loanService) Liquidate(ctx context.Context, tx *db.DB, loanID uint64, at time.Time) (*core.Loan, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.State != core.LoanStateAuction {
		return nil, core.ErrInvalidLoanState
	}

	if !loan.HasBid() {
		return nil, core.ErrNoBid
	}

	config, err := s.findConfig(ctx, loan.CollectionID)
	if err != nil {
		return nil, err
	}

	anchor := s.auctionAnchor(loan)
	if at.Before(anchor.Add(config.AuctionWindow())) {
		return nil, core.ErrAuctionNotExpired
	}

	reserve, err := s.findReserve(ctx, loan.ReserveAssetID)
	if err != nil {
		return nil, err
	}

	if err := s.reserveService.AccrueInterest(ctx, tx, reserve, at); err != nil {
		return nil, err
	}

	presentDebt := loan.PresentDebt(reserve.BorrowIndex)

	// the bid escrow already sits in the pool; retire the debt against it
	// and pay the surplus, if any, back to the borrower
	if err := s.reserveService.RepayDebt(ctx, tx, reserve, decimal.Zero, loan.ScaledDebt, at); err != nil {
		return nil, err
	}

	if surplus := loan.BidPrice.Sub(presentDebt); surplus.IsPositive() {
		if err := s.reserveService.Withdraw(ctx, tx, reserve, surplus, at); err != nil {
			return nil, err
		}

		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:surplus", loan.ID)),
			Kind:       core.TransferKindFungible,
			OpponentID: loan.Borrower,
			AssetID:    reserve.AssetID,
			Amount:     surplus,
		}); err != nil {
			return nil, err
		}
	}

	loan.ScaledDebt = decimal.Zero
	loan.State = core.LoanStateDefaulted
	if err := s.loanStore.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	if err := s.returnCollateral(ctx, tx, loan, loan.Bidder, "defaulted"); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("loan", loan.ID).Infoln("loan defaulted")
	return loan, nil
}

// HealthFactor prices the loan at the current oracle quotes with the borrow
// index projected to at. Nothing is persisted.
func (s *loanService) HealthFactor(ctx context.Context, loan *core.Loan, at time.Time) (decimal.Decimal, error) {
	if loan.State.IsTerminal() {
		return decimal.Zero, core.ErrInvalidLoanState
	}

	config, err := s.findConfig(ctx, loan.CollectionID)
	if err != nil {
		return decimal.Zero, err
	}

	reserve, err := s.findReserve(ctx, loan.ReserveAssetID)
	if err != nil {
		return decimal.Zero, err
	}

	collateralValue, reservePrice, err := s.prices(ctx, loan.CollectionID, reserve.AssetID, at)
	if err != nil {
		return decimal.Zero, err
	}

	index := reserve.BorrowIndex
	if !reserve.LastAccruedAt.IsZero() && at.After(reserve.LastAccruedAt) {
		index = pawn.CompoundIndex(index, reserve.BorrowRate, at.Sub(reserve.LastAccruedAt))
	}

	debtValue := loan.PresentDebt(index).Mul(reservePrice)
	return pawn.HealthFactor(collateralValue, debtValue, config.LiquidationThreshold), nil
}

func (s *loanService) findLoan(ctx context.Context, loanID uint64) (*core.Loan, error) {
	loan, err := s.loanStore.Find(ctx, loanID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrLoanNotFound
		}
		return nil, err
	}

	return loan, nil
}

func (s *loanService) findConfig(ctx context.Context, collectionID string) (*core.CollateralConfig, error) {
	config, err := s.collateralStore.Find(ctx, collectionID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrCollateralNotFound
		}
		return nil, err
	}

	return config, nil
}

func (s *loanService) findReserve(ctx context.Context, assetID string) (*core.Reserve, error) {
	reserve, err := s.reserveStore.Find(ctx, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrReserveNotFound
		}
		return nil, err
	}

	return reserve, nil
}

// prices collateral value and reserve asset price in the valuation unit
func (s *loanService) prices(ctx context.Context, collectionID, reserveAssetID string, at time.Time) (decimal.Decimal, decimal.Decimal, error) {
	collateralValue, err := s.oracle.GetPrice(ctx, collectionID, at)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	reservePrice, err := s.oracle.GetPrice(ctx, reserveAssetID, at)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if !collateralValue.IsPositive() || !reservePrice.IsPositive() {
		return decimal.Zero, decimal.Zero, core.ErrInvalidPrice
	}

	return collateralValue, reservePrice, nil
}

func (s *loanService) auctionAnchor(loan *core.Loan) time.Time {
	if s.clock == core.AuctionClockTrigger || !loan.FirstBidAt.Valid {
		return loan.AuctionedAt.Time
	}

	return loan.FirstBidAt.Time
}

func (s *loanService) returnCollateral(ctx context.Context, tx *db.DB, loan *core.Loan, opponent, reason string) error {
	return s.transferStore.Create(ctx, tx, &core.Transfer{
		TraceID:      id.TraceIDFrom(fmt.Sprintf("loan:%d:collateral:%s", loan.ID, reason)),
		Kind:         core.TransferKindCollateral,
		OpponentID:   opponent,
		CollectionID: loan.CollectionID,
		TokenID:      loan.TokenID,
	})
}
