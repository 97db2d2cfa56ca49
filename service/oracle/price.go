package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"pawnshop/core"
	"pawnshop/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
	"github.com/jinzhu/gorm"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"
)

// PriceService signed-feed price oracle backed by the local price store
type PriceService struct {
	config     *core.Config
	priceStore core.IPriceStore
	signers    []*blst.PublicKey
}

// New new oracle price service
func New(config *core.Config, priceStore core.IPriceStore, signers []*blst.PublicKey) core.IPriceOracleService {
	return &PriceService{
		config:     config,
		priceStore: priceStore,
		signers:    signers,
	}
}

// ParseSigners decode the configured feed signer keys
func ParseSigners(cfg core.PriceOracle) ([]*blst.PublicKey, error) {
	signers := make([]*blst.PublicKey, 0, len(cfg.Signers))
	for _, s := range cfg.Signers {
		bts, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}

		pub := blst.PublicKey{}
		if err := pub.FromBytes(bts); err != nil {
			return nil, err
		}

		signers = append(signers, &pub)
	}

	return signers, nil
}

// GetPrice the stored quote for the asset. A missing or expired quote fails
// the caller rather than falling back to an estimate.
func (s *PriceService) GetPrice(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error) {
	price, err := s.priceStore.Find(ctx, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, core.ErrInvalidPrice
		}
		return decimal.Zero, err
	}

	if expire := s.config.PriceOracle.ExpireSeconds; expire > 0 {
		if at.Sub(price.UpdatedAt) > time.Duration(expire)*time.Second {
			return decimal.Zero, core.ErrInvalidPrice
		}
	}

	if !price.Price.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	return price.Price, nil
}

// PullTickers fetch the current signed tickers from the feed, dropping any
// whose aggregated signature does not verify against the configured signers
func (s *PriceService) PullTickers(ctx context.Context, at time.Time) ([]*core.PriceData, error) {
	log := logger.FromContext(ctx).WithField("service", "oracle")

	url := fmt.Sprintf("%s/api/tickers?ts=%d", s.config.PriceOracle.EndPoint, at.UTC().Unix())
	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var tickers []*core.PriceData
	if err := resthttp.ParseResponse(resp, &tickers); err != nil {
		return nil, err
	}

	verified := make([]*core.PriceData, 0, len(tickers))
	for _, ticker := range tickers {
		if !ticker.Price.IsPositive() {
			continue
		}

		if !ticker.Verify(s.signers, s.config.PriceOracle.Threshold) {
			log.WithField("asset", ticker.AssetID).Warningln("ticker signature rejected")
			continue
		}

		verified = append(verified, ticker)
	}

	return verified, nil
}
