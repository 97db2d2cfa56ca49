package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// TransferKind the two legs the engine can schedule
type TransferKind int

const (
	// TransferKindFungible reserve-asset payout, refund or fine
	TransferKindFungible TransferKind = iota + 1
	// TransferKindCollateral custody movement of an NFT
	TransferKindCollateral
)

// Transfer a queued outbound movement. Rows are created inside the same
// database transaction as the state change that owes them, which makes the
// scheduling exactly-once; the cashier executes and deletes them.
type Transfer struct {
	ID         uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
	TraceID    string          `sql:"size:36;unique_index:trace_idx" json:"trace_id,omitempty"`
	Kind       TransferKind    `sql:"default:1" json:"kind,omitempty"`
	OpponentID string          `sql:"size:36" json:"opponent_id,omitempty"`
	AssetID    string          `sql:"size:36" json:"asset_id,omitempty"`
	Amount     decimal.Decimal `sql:"type:decimal(32,16)" json:"amount,omitempty"`
	// collateral leg only
	CollectionID string `sql:"size:36" json:"collection_id,omitempty"`
	TokenID      string `sql:"size:64" json:"token_id,omitempty"`
	Memo         string `sql:"size:140" json:"memo,omitempty"`
}

// ITransferStore transfer store interface
type ITransferStore interface {
	Create(ctx context.Context, tx *db.DB, transfer *Transfer) error
	Top(ctx context.Context, limit int) ([]*Transfer, error)
	Delete(ctx context.Context, tx *db.DB, ids ...uint64) error
}
