package cmd

import (
	"pawnshop/core"

	"github.com/MakeNowJust/heredoc"
	"github.com/fox-one/pkg/store/db"
	"github.com/spf13/cobra"
)

var collateralCmd = &cobra.Command{
	Use:   "collateral <collection_id> <symbol>",
	Short: "set the lending parameters of a collateral collection",
	Example: heredoc.Doc(`
		$ pawnshop collateral 9a43e9f6-8901-4ab8-9de1-9c8080c0a109 PUNK \
			--ltv 5000 --liquidation-threshold 7000 --redeem-threshold 5000 \
			--liquidation-bonus 500 --redeem-fine 100 --min-bid-fine 50 \
			--bid-increment 100 --redeem-duration 86400 --auction-duration 172800
	`),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		config := &core.CollateralConfig{
			CollectionID:         args[0],
			Symbol:               args[1],
			LTV:                  mustInt64Flag(cmd, "ltv"),
			LiquidationThreshold: mustInt64Flag(cmd, "liquidation-threshold"),
			RedeemThreshold:      mustInt64Flag(cmd, "redeem-threshold"),
			LiquidationBonus:     mustInt64Flag(cmd, "liquidation-bonus"),
			RedeemFine:           mustInt64Flag(cmd, "redeem-fine"),
			MinBidFine:           mustInt64Flag(cmd, "min-bid-fine"),
			BidIncrement:         mustInt64Flag(cmd, "bid-increment"),
			RedeemDuration:       mustInt64Flag(cmd, "redeem-duration"),
			AuctionDuration:      mustInt64Flag(cmd, "auction-duration"),
		}

		if err := config.Validate(); err != nil {
			cmd.PrintErrln("invalid collateral config:", err)
			return
		}

		collateralStore := provideCollateralStore(database)
		err := database.Tx(func(tx *db.DB) error {
			return collateralStore.Save(ctx, tx, config)
		})
		if err != nil {
			cmd.PrintErrln("save collateral config:", err)
			return
		}

		cmd.Println("collateral configured:", config.CollectionID)
	},
}

func mustInt64Flag(cmd *cobra.Command, name string) int64 {
	v, err := cmd.Flags().GetInt64(name)
	if err != nil {
		panic(err)
	}

	return v
}

func init() {
	rootCmd.AddCommand(collateralCmd)

	collateralCmd.Flags().Int64("ltv", 0, "max draw value over collateral value, basis points")
	collateralCmd.Flags().Int64("liquidation-threshold", 0, "health factor discount, basis points")
	collateralCmd.Flags().Int64("redeem-threshold", 0, "min repay share of debt on redeem, basis points")
	collateralCmd.Flags().Int64("liquidation-bonus", 0, "first-bid discount on collateral value, basis points")
	collateralCmd.Flags().Int64("redeem-fine", 0, "fine on the bid price, basis points")
	collateralCmd.Flags().Int64("min-bid-fine", 0, "fine floor on outstanding debt, basis points")
	collateralCmd.Flags().Int64("bid-increment", 0, "min step between bids, basis points")
	collateralCmd.Flags().Int64("redeem-duration", 0, "redeem window, seconds")
	collateralCmd.Flags().Int64("auction-duration", 0, "auction window, seconds")
}
