package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"
)

// Price latest oracle quote for an asset, in the common valuation unit
type Price struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	AssetID   string          `sql:"size:36;unique_index:price_asset_idx" json:"asset_id,omitempty"`
	Price     decimal.Decimal `sql:"type:decimal(32,16)" json:"price,omitempty"`
	Content   types.JSONText  `sql:"type:varchar(1024)" json:"content,omitempty"`
	Version   int64           `sql:"default:0" json:"version,omitempty"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// PriceData a signed ticker pulled from the oracle feed
type PriceData struct {
	AssetID    string          `json:"asset_id,omitempty"`
	Price      decimal.Decimal `json:"price,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	SignerMask uint64          `json:"signer_mask,omitempty"`
	Signature  *blst.Signature `json:"signature,omitempty"`
}

// Payload the signed bytes: asset, price and timestamp in canonical json
func (p *PriceData) Payload() []byte {
	bts, _ := json.Marshal(map[string]interface{}{
		"asset_id":  p.AssetID,
		"price":     p.Price,
		"timestamp": p.Timestamp,
	})

	return bts
}

// Verify checks the aggregated signature against the registered signers.
// Signer indices are 1-based positions in the mask, matching the feed side.
func (p *PriceData) Verify(signers []*blst.PublicKey, threshold int) bool {
	if p.Signature == nil || threshold <= 0 {
		return false
	}

	var pubs []*blst.PublicKey
	for idx, pub := range signers {
		if p.SignerMask&(0x1<<uint(idx+1)) != 0 {
			pubs = append(pubs, pub)
		}
	}

	return len(pubs) >= threshold &&
		blst.AggregatePublicKeys(pubs).Verify(p.Payload(), p.Signature)
}

// IPriceStore price store interface
type IPriceStore interface {
	Save(ctx context.Context, tx *db.DB, price *Price) error
	Find(ctx context.Context, assetID string) (*Price, error)
	All(ctx context.Context) ([]*Price, error)
}

// IPriceOracleService external price oracle boundary. A missing or stale price
// is a hard failure of the calling operation; the engine never estimates.
type IPriceOracleService interface {
	GetPrice(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error)
	PullTickers(ctx context.Context, at time.Time) ([]*PriceData, error)
}
