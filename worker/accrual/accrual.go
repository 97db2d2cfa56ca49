package accrual

import (
	"context"
	"time"

	"pawnshop/core"
	"pawnshop/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
)

// Worker accrues interest on every reserve at a fixed cadence, so indices and
// rates stay fresh even while no payments arrive
type Worker struct {
	worker.BaseJob
	db             *db.DB
	reserveStore   core.IReserveStore
	reserveService core.IReserveService
}

// New new accrual worker
func New(location string, db *db.DB, reserveStore core.IReserveStore, reserveService core.IReserveService) *Worker {
	job := Worker{
		db:             db,
		reserveStore:   reserveStore,
		reserveService: reserveService,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 1m"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")

	reserves, err := w.reserveStore.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("fetch reserves")
		return err
	}

	now := time.Now()
	for _, reserve := range reserves {
		reserve := reserve
		err := w.db.Tx(func(tx *db.DB) error {
			return w.reserveService.AccrueInterest(ctx, tx, reserve, now)
		})
		if err != nil {
			log.WithError(err).Errorln("accrue, reserve:", reserve.AssetID)
		}
	}

	return nil
}
