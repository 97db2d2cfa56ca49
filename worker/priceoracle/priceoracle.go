package priceoracle

import (
	"context"
	"encoding/json"
	"time"

	"pawnshop/core"
	"pawnshop/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
	"github.com/robfig/cron/v3"
)

// Worker pulls verified tickers from the price feed and persists them as the
// quotes the engine values collateral and debt with
type Worker struct {
	worker.BaseJob
	db         *db.DB
	priceStore core.IPriceStore
	oracle     core.IPriceOracleService
}

// New new price oracle worker
func New(location string, db *db.DB, priceStore core.IPriceStore, oracle core.IPriceOracleService) *Worker {
	job := Worker{
		db:         db,
		priceStore: priceStore,
		oracle:     oracle,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 30s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "priceoracle")

	tickers, err := w.oracle.PullTickers(ctx, time.Now())
	if err != nil {
		log.WithError(err).Errorln("pull tickers")
		return err
	}

	for _, ticker := range tickers {
		content, _ := json.Marshal(ticker)
		price := &core.Price{
			AssetID: ticker.AssetID,
			Price:   ticker.Price,
			Content: types.JSONText(content),
		}

		err := w.db.Tx(func(tx *db.DB) error {
			return w.priceStore.Save(ctx, tx, price)
		})
		if err != nil {
			log.WithError(err).Errorln("save price, asset:", ticker.AssetID)
		}
	}

	return nil
}
