package cmd

import (
	"time"

	"pawnshop/core"

	"github.com/MakeNowJust/heredoc"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var reserveCmd = &cobra.Command{
	Use:   "reserve <asset_id> <symbol>",
	Short: "register a reserve with its jump-rate curve",
	Example: heredoc.Doc(`
		$ pawnshop reserve 4d8c508b-91c5-375b-92b0-ee702ed2dac5 USDT \
			--base-rate 0.02 --multiplier 0.2 --jump-multiplier 1.5 --kink 0.8 --reserve-factor 0.1
	`),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		reserve := &core.Reserve{
			AssetID:        args[0],
			Symbol:         args[1],
			LiquidityIndex: decimal.New(1, 0),
			BorrowIndex:    decimal.New(1, 0),
			BaseRate:       mustDecimalFlag(cmd, "base-rate"),
			Multiplier:     mustDecimalFlag(cmd, "multiplier"),
			JumpMultiplier: mustDecimalFlag(cmd, "jump-multiplier"),
			Kink:           mustDecimalFlag(cmd, "kink"),
			ReserveFactor:  mustDecimalFlag(cmd, "reserve-factor"),
			LastAccruedAt:  time.Now(),
		}

		reserveStore := provideReserveStore(database)
		err := database.Tx(func(tx *db.DB) error {
			return reserveStore.Create(ctx, tx, reserve)
		})
		if err != nil {
			cmd.PrintErrln("create reserve:", err)
			return
		}

		cmd.Println("reserve registered:", reserve.AssetID)
	},
}

func mustDecimalFlag(cmd *cobra.Command, name string) decimal.Decimal {
	raw, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}

	return d
}

func init() {
	rootCmd.AddCommand(reserveCmd)

	reserveCmd.Flags().String("base-rate", "0.02", "annual base borrow rate")
	reserveCmd.Flags().String("multiplier", "0.2", "rate slope below the kink")
	reserveCmd.Flags().String("jump-multiplier", "1.5", "rate slope above the kink")
	reserveCmd.Flags().String("kink", "0.8", "utilization the jump slope starts at")
	reserveCmd.Flags().String("reserve-factor", "0.1", "share of interest withheld from suppliers")
}
