package cmd

import (
	"sync"

	"pawnshop/worker"
	"pawnshop/worker/accrual"
	"pawnshop/worker/cashier"
	"pawnshop/worker/liquidator"
	"pawnshop/worker/payee"
	"pawnshop/worker/priceoracle"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "pawnshop job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		propertyStore := providePropertyStore(database)
		reserveStore := provideReserveStore(database)
		loanStore := provideLoanStore(database)
		collateralStore := provideCollateralStore(database)
		priceStore := providePriceStore(database)
		transferStore := provideTransferStore(database)
		snapshotStore := provideSnapshotStore(database)

		walletService := provideWalletService()
		reserveService := provideReserveService(reserveStore)
		priceService := providePriceService(priceStore)
		loanService := provideLoanService(loanStore, collateralStore, reserveStore, reserveService, transferStore, priceService)
		auctionService := provideAuctionService(loanStore, collateralStore, reserveStore, reserveService, transferStore, priceService)
		redeemService := provideRedeemService(loanStore, collateralStore, reserveStore, reserveService, transferStore)

		batch, _ := cmd.Flags().GetInt("cashier.batch")
		capacity, _ := cmd.Flags().GetInt64("cashier.capacity")

		workers := []worker.Worker{
			payee.NewPayee(database, propertyStore, snapshotStore, loanStore, reserveStore, transferStore, walletService, reserveService, loanService, auctionService, redeemService),
			cashier.New(database, transferStore, walletService, cashier.Config{Batch: batch, Capacity: capacity}),
			worker.NewJobWorker(liquidator.New(cfg.App.Location, database, loanStore, loanService)),
			worker.NewJobWorker(accrual.New(cfg.App.Location, database, reserveStore, reserveService)),
			worker.NewJobWorker(priceoracle.New(cfg.App.Location, database, priceStore, priceService)),
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(worker worker.Worker) {
				defer wg.Done()
				worker.Run(ctx)
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Int("cashier.batch", 100, "custom batch for worker cashier")
	workerCmd.Flags().Int64("cashier.capacity", 1, "custom capacity for worker cashier")
}
