package payee

import (
	"context"
	"errors"
	"strconv"
	"time"

	"pawnshop/core"
	walletz "pawnshop/service/wallet"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

const (
	checkpointKey = "snapshots_checkpoint"
	limit         = 500
)

// Payee is the payment gateway: it tails the wallet's snapshots, decodes the
// action memo on each inbound payment and applies the matching operation in
// one database transaction. Anything undecodable or rejected is refunded.
type Payee struct {
	db             *db.DB
	propertyStore  property.Store
	snapshotStore  core.ISnapshotStore
	loanStore      core.ILoanStore
	reserveStore   core.IReserveStore
	transferStore  core.ITransferStore
	walletService  core.IWalletService
	reserveService core.IReserveService
	loanService    core.ILoanService
	auctionService core.IAuctionService
	redeemService  core.IRedeemService
}

// NewPayee new payee
func NewPayee(
	db *db.DB,
	propertyStore property.Store,
	snapshotStore core.ISnapshotStore,
	loanStore core.ILoanStore,
	reserveStore core.IReserveStore,
	transferStore core.ITransferStore,
	walletService core.IWalletService,
	reserveService core.IReserveService,
	loanService core.ILoanService,
	auctionService core.IAuctionService,
	redeemService core.IRedeemService,
) *Payee {
	return &Payee{
		db:             db,
		propertyStore:  propertyStore,
		snapshotStore:  snapshotStore,
		loanStore:      loanStore,
		reserveStore:   reserveStore,
		transferStore:  transferStore,
		walletService:  walletService,
		reserveService: reserveService,
		loanService:    loanService,
		auctionService: auctionService,
		redeemService:  redeemService,
	}
}

// Run run worker
func (w *Payee) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "payee")
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := w.run(ctx); err == nil {
				dur = 100 * time.Millisecond
			} else {
				dur = 500 * time.Millisecond
			}
		}
	}
}

func (w *Payee) run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "payee")

	v, err := w.propertyStore.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get error")
		return err
	}

	snapshots, next, err := w.walletService.PullSnapshots(ctx, v.String(), limit)
	if err != nil {
		log.WithError(err).Errorln("pull snapshots")
		return err
	}

	if len(snapshots) == 0 {
		return errors.New("EOF")
	}

	for _, snapshot := range snapshots {
		if err := w.handleSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}

	if err := w.propertyStore.Save(ctx, checkpointKey, next); err != nil {
		log.WithError(err).Errorln("property.Save:", next)
		return err
	}

	return nil
}

func (w *Payee) handleSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	log := logger.FromContext(ctx).WithField("snapshot", snapshot.SnapshotID)
	ctx = logger.WithContext(ctx, log)

	// outbound movements and dust carry no action
	if !snapshot.Amount.IsPositive() || snapshot.OpponentID == "" {
		return nil
	}

	if _, err := w.snapshotStore.Find(ctx, snapshot.SnapshotID); err == nil {
		return nil
	} else if !gorm.IsRecordNotFoundError(err) {
		return err
	}

	err := w.db.Tx(func(tx *db.DB) error {
		return w.handleAction(ctx, tx, snapshot)
	})

	var code core.ErrorCode
	if errors.As(err, &code) {
		log.WithField("code", code).Infoln("payment rejected, refunding")
		err = w.db.Tx(func(tx *db.DB) error {
			return w.refund(ctx, tx, snapshot, code)
		})
	}

	if err != nil {
		return err
	}

	return w.snapshotStore.Save(ctx, snapshot)
}

func (w *Payee) handleAction(ctx context.Context, tx *db.DB, snapshot *core.Snapshot) error {
	action, err := core.ParseAction(snapshot.Memo)
	if err != nil {
		return core.ErrInvalidArgument
	}

	now := snapshot.CreatedAt

	switch action[core.ActionKeyService] {
	case core.ActionServiceDeposit:
		return w.handleDeposit(ctx, tx, snapshot, now)
	case core.ActionServiceBorrow:
		return w.handleBorrow(ctx, tx, snapshot, action, now)
	case core.ActionServiceRepay:
		return w.handleRepay(ctx, tx, snapshot, action, now)
	case core.ActionServiceBid:
		return w.handleBid(ctx, tx, snapshot, action, now)
	case core.ActionServiceRedeem:
		return w.handleRedeem(ctx, tx, snapshot, action, now)
	case core.ActionServiceTrigger:
		return w.handleTrigger(ctx, tx, snapshot, action, now)
	default:
		return core.ErrInvalidArgument
	}
}

func (w *Payee) handleDeposit(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, now time.Time) error {
	reserve, err := w.findReserve(ctx, snapshot.AssetID)
	if err != nil {
		return err
	}

	return w.reserveService.Deposit(ctx, tx, reserve, snapshot.Amount, now)
}

// handleBorrow the inbound payment is the pledged collateral itself; the memo
// names the reserve to draw from and the amount to draw
func (w *Payee) handleBorrow(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, action core.Action, now time.Time) error {
	collectionID := action[core.ActionKeyCollection]
	tokenID := action[core.ActionKeyToken]
	reserveAssetID := action[core.ActionKeyAsset]

	if snapshot.AssetID != walletz.CollateralAssetID(collectionID, tokenID) ||
		!snapshot.Amount.Equal(decimal.New(1, 0)) {
		return core.ErrInvalidArgument
	}

	amount, err := decimal.NewFromString(action[core.ActionKeyAmount])
	if err != nil {
		return core.ErrInvalidAmount
	}

	_, err = w.loanService.Open(ctx, tx, snapshot.OpponentID, reserveAssetID, collectionID, tokenID, amount, now)
	return err
}

func (w *Payee) handleRepay(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, action core.Action, now time.Time) error {
	loan, err := w.findLoan(ctx, action)
	if err != nil {
		return err
	}

	if snapshot.OpponentID != loan.Borrower || snapshot.AssetID != loan.ReserveAssetID {
		return core.ErrOperationForbidden
	}

	_, err = w.loanService.Repay(ctx, tx, loan.ID, snapshot.Amount, now)
	return err
}

func (w *Payee) handleBid(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, action core.Action, now time.Time) error {
	loan, err := w.findLoan(ctx, action)
	if err != nil {
		return err
	}

	if snapshot.AssetID != loan.ReserveAssetID {
		return core.ErrInvalidArgument
	}

	_, err = w.auctionService.Bid(ctx, tx, loan.ID, snapshot.OpponentID, snapshot.Amount, now)
	return err
}

// handleRedeem the payment carries repayment plus fine; the fn key says how
// much of it is the fine
func (w *Payee) handleRedeem(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, action core.Action, now time.Time) error {
	loan, err := w.findLoan(ctx, action)
	if err != nil {
		return err
	}

	if snapshot.OpponentID != loan.Borrower || snapshot.AssetID != loan.ReserveAssetID {
		return core.ErrOperationForbidden
	}

	fine := decimal.Zero
	if raw, ok := action[core.ActionKeyFine]; ok {
		if fine, err = decimal.NewFromString(raw); err != nil || fine.IsNegative() {
			return core.ErrInvalidAmount
		}
	}

	repay := snapshot.Amount.Sub(fine)
	_, err = w.redeemService.Redeem(ctx, tx, loan.ID, repay, fine, now)
	return err
}

// handleTrigger a trigger payment is only a signal; the amount rides back to
// the sender whether or not the trigger lands
func (w *Payee) handleTrigger(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, action core.Action, now time.Time) error {
	loan, err := w.findLoan(ctx, action)
	if err != nil {
		return err
	}

	if _, err := w.loanService.TriggerAuction(ctx, tx, loan.ID, now); err != nil {
		return err
	}

	return w.transferStore.Create(ctx, tx, &core.Transfer{
		TraceID:    foxuuid.Modify(snapshot.TraceID, "trigger-refund"),
		Kind:       core.TransferKindFungible,
		OpponentID: snapshot.OpponentID,
		AssetID:    snapshot.AssetID,
		Amount:     snapshot.Amount,
	})
}

func (w *Payee) refund(ctx context.Context, tx *db.DB, snapshot *core.Snapshot, code core.ErrorCode) error {
	memo, _ := core.NewAction().
		With(core.ActionKeyService, core.ActionServiceRefund).
		With(core.ActionKeyErrorCode, code.String()).
		With(core.ActionKeyReferTrace, snapshot.TraceID).
		Format()

	return w.transferStore.Create(ctx, tx, &core.Transfer{
		TraceID:    foxuuid.Modify(snapshot.TraceID, "refund"),
		Kind:       core.TransferKindFungible,
		OpponentID: snapshot.OpponentID,
		AssetID:    snapshot.AssetID,
		Amount:     snapshot.Amount,
		Memo:       memo,
	})
}

func (w *Payee) findLoan(ctx context.Context, action core.Action) (*core.Loan, error) {
	loanID, err := strconv.ParseUint(action[core.ActionKeyLoan], 10, 64)
	if err != nil {
		return nil, core.ErrInvalidArgument
	}

	loan, err := w.loanStore.Find(ctx, loanID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrLoanNotFound
		}
		return nil, err
	}

	return loan, nil
}

func (w *Payee) findReserve(ctx context.Context, assetID string) (*core.Reserve, error) {
	reserve, err := w.reserveStore.Find(ctx, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrReserveNotFound
		}
		return nil, err
	}

	return reserve, nil
}
