package liquidator

import (
	"context"
	"time"

	"pawnshop/core"
	"pawnshop/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

const batch = 500

// Worker sweeps the book: unhealthy active loans are pushed into auction, and
// expired auctions with a standing bid are settled. Both paths re-run the
// service-side checks, so a sweep racing a repayment just no-ops.
type Worker struct {
	worker.BaseJob
	db          *db.DB
	loanStore   core.ILoanStore
	loanService core.ILoanService
}

// New new liquidator worker
func New(location string, db *db.DB, loanStore core.ILoanStore, loanService core.ILoanService) *Worker {
	job := Worker{
		db:          db,
		loanStore:   loanStore,
		loanService: loanService,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	spec := "@every 10s"
	job.Cron.AddFunc(spec, job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "liquidator")
	ctx = logger.WithContext(ctx, log)

	if err := w.sweepActives(ctx); err != nil {
		log.WithError(err).Errorln("sweep actives")
		return err
	}

	if err := w.sweepAuctions(ctx); err != nil {
		log.WithError(err).Errorln("sweep auctions")
		return err
	}

	return nil
}

func (w *Worker) sweepActives(ctx context.Context) error {
	log := logger.FromContext(ctx)

	loans, err := w.loanStore.ListByState(ctx, core.LoanStateActive, batch)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, loan := range loans {
		health, err := w.loanService.HealthFactor(ctx, loan, now)
		if err != nil {
			log.WithError(err).Errorln("health factor, loan:", loan.ID)
			continue
		}

		if health.GreaterThanOrEqual(decimal.New(1, 0)) {
			continue
		}

		err = w.db.Tx(func(tx *db.DB) error {
			_, err := w.loanService.TriggerAuction(ctx, tx, loan.ID, now)
			return err
		})
		if err != nil && err != core.ErrInvalidHealthFactor && err != core.ErrInvalidLoanState {
			log.WithError(err).Errorln("trigger auction, loan:", loan.ID)
		}
	}

	return nil
}

func (w *Worker) sweepAuctions(ctx context.Context) error {
	log := logger.FromContext(ctx)

	loans, err := w.loanStore.ListByState(ctx, core.LoanStateAuction, batch)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, loan := range loans {
		err := w.db.Tx(func(tx *db.DB) error {
			_, err := w.loanService.Liquidate(ctx, tx, loan.ID, now)
			return err
		})

		switch err {
		case nil, core.ErrAuctionNotExpired, core.ErrNoBid, core.ErrInvalidLoanState:
		default:
			log.WithError(err).Errorln("liquidate, loan:", loan.ID)
		}
	}

	return nil
}
