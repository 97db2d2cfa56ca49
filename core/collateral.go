package core

import (
	"context"
	"errors"
	"time"

	"github.com/fox-one/pkg/store/db"
)

// AuctionClock chooses the reference point the auction and redeem windows are
// measured from. The observed reference behavior anchors to the first accepted
// bid; trigger-time anchoring is kept selectable.
type AuctionClock string

const (
	// AuctionClockFirstBid windows start at the first accepted bid
	AuctionClockFirstBid AuctionClock = "first_bid"
	// AuctionClockTrigger windows start when the auction is triggered
	AuctionClockTrigger AuctionClock = "trigger"
)

// CollateralConfig per-collection lending parameters, set by governance tooling
// and read-only to the engine. Ratio fields are basis points.
type CollateralConfig struct {
	ID           uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollectionID string `sql:"size:36;unique_index:collection_idx" json:"collection_id"`
	Symbol       string `sql:"size:20" json:"symbol"`
	// max draw value over collateral value at origination
	LTV int64 `sql:"default:0" json:"ltv"`
	// discount applied to collateral value in the health factor
	LiquidationThreshold int64 `sql:"default:0" json:"liquidation_threshold"`
	// minimum fraction of debt a redemption must repay
	RedeemThreshold int64 `sql:"default:0" json:"redeem_threshold"`
	// discount on collateral value pricing the minimum first bid
	LiquidationBonus int64 `sql:"default:0" json:"liquidation_bonus"`
	// fine charged against the bid price on redemption
	RedeemFine int64 `sql:"default:0" json:"redeem_fine"`
	// floor on the fine, charged against outstanding debt
	MinBidFine int64 `sql:"default:0" json:"min_bid_fine"`
	// minimum step between successive bids
	BidIncrement int64 `sql:"default:0" json:"bid_increment"`
	// windows, in seconds
	RedeemDuration  int64     `sql:"default:0" json:"redeem_duration"`
	AuctionDuration int64     `sql:"default:0" json:"auction_duration"`
	Version         int64     `sql:"default:0" json:"version"`
	CreatedAt       time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Validate checks parameter ordering before a config is persisted
func (c *CollateralConfig) Validate() error {
	if c.CollectionID == "" {
		return errors.New("collateral: empty collection id")
	}

	if c.LTV <= 0 || c.LTV >= 10000 {
		return errors.New("collateral: ltv out of range")
	}

	if c.LiquidationThreshold <= c.LTV || c.LiquidationThreshold >= 10000 {
		return errors.New("collateral: liquidation threshold out of range")
	}

	if c.RedeemThreshold <= 0 || c.RedeemThreshold > c.LiquidationThreshold {
		return errors.New("collateral: redeem threshold above liquidation threshold")
	}

	if c.AuctionDuration <= 0 || c.RedeemDuration <= 0 || c.RedeemDuration > c.AuctionDuration {
		return errors.New("collateral: invalid window durations")
	}

	return nil
}

// RedeemWindow redeem duration as a time.Duration
func (c *CollateralConfig) RedeemWindow() time.Duration {
	return time.Duration(c.RedeemDuration) * time.Second
}

// AuctionWindow auction duration as a time.Duration
func (c *CollateralConfig) AuctionWindow() time.Duration {
	return time.Duration(c.AuctionDuration) * time.Second
}

// ICollateralStore collateral config store interface
type ICollateralStore interface {
	Save(ctx context.Context, tx *db.DB, config *CollateralConfig) error
	Find(ctx context.Context, collectionID string) (*CollateralConfig, error)
	All(ctx context.Context) ([]*CollateralConfig, error)
}
