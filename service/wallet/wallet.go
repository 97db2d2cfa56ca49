package wallet

import (
	"context"
	"fmt"
	"time"

	"pawnshop/core"
	"pawnshop/pkg/id"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/shopspring/decimal"
)

// New new wallet service
func New(mainWallet *core.Wallet) core.IWalletService {
	return &walletService{
		MainWallet: mainWallet,
	}
}

type walletService struct {
	MainWallet *core.Wallet
}

// HandleTransfer executes one queued movement. Collateral legs move the
// asset-wrapped token, one unit per token.
func (s *walletService) HandleTransfer(ctx context.Context, transfer *core.Transfer) (*core.Snapshot, error) {
	input := &mixin.TransferInput{
		AssetID:    transfer.AssetID,
		OpponentID: transfer.OpponentID,
		Amount:     transfer.Amount,
		TraceID:    transfer.TraceID,
		Memo:       transfer.Memo,
	}

	if transfer.Kind == core.TransferKindCollateral {
		input.AssetID = CollateralAssetID(transfer.CollectionID, transfer.TokenID)
		input.Amount = decimal.New(1, 0)
	}

	snapshot, err := s.MainWallet.Client.Transfer(ctx, input, s.MainWallet.Pin)
	if err != nil {
		return nil, err
	}

	return convertSnapshot(snapshot), nil
}

func (s *walletService) PullSnapshots(ctx context.Context, cursor string, limit int) ([]*core.Snapshot, string, error) {
	offset, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		offset = time.Now().UTC()
	}

	snapshots, err := s.MainWallet.Client.ReadNetworkSnapshots(ctx, "", offset, "ASC", limit)
	if err != nil {
		return nil, "", err
	}

	out := make([]*core.Snapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		out = append(out, convertSnapshot(snapshot))
		offset = snapshot.CreatedAt
	}

	return out, offset.Format(time.RFC3339Nano), nil
}

// CollateralAssetID the wrapped-asset id a pledged token travels as
func CollateralAssetID(collectionID, tokenID string) string {
	return id.TraceIDFrom(fmt.Sprintf("token:%s:%s", collectionID, tokenID))
}

func convertSnapshot(snapshot *mixin.Snapshot) *core.Snapshot {
	return &core.Snapshot{
		SnapshotID: snapshot.SnapshotID,
		TraceID:    snapshot.TraceID,
		UserID:     snapshot.UserID,
		OpponentID: snapshot.OpponentID,
		AssetID:    snapshot.AssetID,
		Amount:     snapshot.Amount,
		Memo:       snapshot.Memo,
		CreatedAt:  snapshot.CreatedAt,
	}
}
