package auction

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

type auctionService struct {
	loanStore       core.ILoanStore
	collateralStore core.ICollateralStore
	reserveStore    core.IReserveStore
	reserveService  core.IReserveService
	transferStore   core.ITransferStore
	oracle          core.IPriceOracleService
	clock           core.AuctionClock
}

// New new auction service
func New(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
	oracle core.IPriceOracleService,
	clock core.AuctionClock,
) core.IAuctionService {
	return &auctionService{
		loanStore:       loanStore,
		collateralStore: collateralStore,
		reserveStore:    reserveStore,
		reserveService:  reserveService,
		transferStore:   transferStore,
		oracle:          oracle,
		clock:           clock,
	}
}

// Bid escrows price against the auctioned loan. The escrow enters the pool
// immediately; the displaced bid leaves it in the same transaction. The first
// accepted bid starts the redeem and auction windows and fixes the bid fine.
func (s *auctionService) Bid(ctx context.Context, tx *db.DB, loanID uint64, bidder string, price decimal.Decimal, at time.Time) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "auction.bid")

	if !price.IsPositive() {
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

	if anchor, ok := s.auctionAnchor(loan); ok && at.After(anchor.Add(config.AuctionWindow())) {
		return nil, core.ErrAuctionExpired
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

	floor, err := s.minBidPrice(ctx, loan, config, reserve, at)
	if err != nil {
		return nil, err
	}

	if price.LessThan(floor) || (loan.HasBid() && !price.GreaterThan(loan.BidPrice)) {
		return nil, core.ErrInsufficientBidIncrement
	}

	if err := s.reserveService.Deposit(ctx, tx, reserve, price, at); err != nil {
		return nil, err
	}

	if loan.HasBid() {
		if err := s.reserveService.Withdraw(ctx, tx, reserve, loan.BidPrice, at); err != nil {
			return nil, err
		}

		if err := s.transferStore.Create(ctx, tx, &core.Transfer{
			TraceID:    id.TraceIDFrom(fmt.Sprintf("loan:%d:outbid:%d", loan.ID, loan.Version)),
			Kind:       core.TransferKindFungible,
			OpponentID: loan.Bidder,
			AssetID:    reserve.AssetID,
			Amount:     loan.BidPrice,
		}); err != nil {
			return nil, err
		}
	} else {
		presentDebt := loan.PresentDebt(reserve.BorrowIndex)
		loan.FirstBidAt = sql.NullTime{Time: at, Valid: true}
		loan.BidFine = pawn.BidFine(price, presentDebt, config.RedeemFine, config.MinBidFine)
	}

	loan.Bidder = bidder
	loan.BidPrice = price
	if err := s.loanStore.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	log.WithField("loan", loan.ID).WithField("price", price).Infoln("bid accepted")
	return loan, nil
}

// MinBidPrice the smallest price the next bid must carry
func (s *auctionService) MinBidPrice(ctx context.Context, loan *core.Loan, at time.Time) (decimal.Decimal, error) {
	if loan.State != core.LoanStateAuction {
		return decimal.Zero, core.ErrInvalidLoanState
	}

	config, err := s.collateralStore.Find(ctx, loan.CollectionID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, core.ErrCollateralNotFound
		}
		return decimal.Zero, err
	}

	reserve, err := s.reserveStore.Find(ctx, loan.ReserveAssetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, core.ErrReserveNotFound
		}
		return decimal.Zero, err
	}

	return s.minBidPrice(ctx, loan, config, reserve, at)
}

// minBidPrice a standing bid is outbid by increment; a first bid must cover
// both the discounted collateral value and the outstanding debt
func (s *auctionService) minBidPrice(ctx context.Context, loan *core.Loan, config *core.CollateralConfig, reserve *core.Reserve, at time.Time) (decimal.Decimal, error) {
	if loan.HasBid() {
		return pawn.MinNextBid(loan.BidPrice, config.BidIncrement), nil
	}

	collateralValue, err := s.oracle.GetPrice(ctx, loan.CollectionID, at)
	if err != nil {
		return decimal.Zero, err
	}

	reservePrice, err := s.oracle.GetPrice(ctx, reserve.AssetID, at)
	if err != nil {
		return decimal.Zero, err
	}

	if !collateralValue.IsPositive() || !reservePrice.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	floor := pawn.MinBidPrice(collateralValue, config.LiquidationBonus, reservePrice)
	if debt := loan.PresentDebt(reserve.BorrowIndex); debt.GreaterThan(floor) {
		floor = debt
	}

	return floor, nil
}

func (s *auctionService) auctionAnchor(loan *core.Loan) (time.Time, bool) {
	if s.clock == core.AuctionClockTrigger {
		return loan.AuctionedAt.Time, loan.AuctionedAt.Valid
	}

	return loan.FirstBidAt.Time, loan.FirstBidAt.Valid
}
