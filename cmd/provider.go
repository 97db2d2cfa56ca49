package cmd

import (
	"pawnshop/core"
	"pawnshop/pkg/pawn"
	auctionservice "pawnshop/service/auction"
	loanservice "pawnshop/service/loan"
	"pawnshop/service/oracle"
	redeemservice "pawnshop/service/redeem"
	reserveservice "pawnshop/service/reserve"
	walletservice "pawnshop/service/wallet"
	"pawnshop/store/collateral"
	"pawnshop/store/loan"
	"pawnshop/store/price"
	"pawnshop/store/reserve"
	"pawnshop/store/snapshot"
	"pawnshop/store/transfer"
	"time"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	_ "github.com/lib/pq"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

func provideMainWallet() *core.Wallet {
	c, err := mixin.NewFromKeystore(&cfg.MainWallet.Keystore)
	if err != nil {
		panic(err)
	}

	return &core.Wallet{
		Client: c,
		Pin:    cfg.MainWallet.Pin,
	}
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideReserveStore(db *db.DB) core.IReserveStore {
	return reserve.New(db)
}

func provideLoanStore(db *db.DB) core.ILoanStore {
	return loan.New(db)
}

func provideCollateralStore(db *db.DB) core.ICollateralStore {
	return collateral.Cache(collateral.New(db), time.Minute)
}

func providePriceStore(db *db.DB) core.IPriceStore {
	return price.New(db)
}

func provideTransferStore(db *db.DB) core.ITransferStore {
	return transfer.New(db)
}

func provideSnapshotStore(db *db.DB) core.ISnapshotStore {
	return snapshot.New(db)
}

// ------------------service------------------------------------

func provideWalletService() core.IWalletService {
	return walletservice.New(provideMainWallet())
}

func provideReserveService(reserveStore core.IReserveStore) core.IReserveService {
	return reserveservice.New(reserveStore, pawn.NewJumpRateStrategy())
}

func providePriceService(priceStore core.IPriceStore) core.IPriceOracleService {
	signers, err := oracle.ParseSigners(cfg.PriceOracle)
	if err != nil {
		panic(err)
	}

	return oracle.New(provideConfig(), priceStore, signers)
}

func provideLoanService(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
	priceService core.IPriceOracleService,
) core.ILoanService {
	return loanservice.New(loanStore, collateralStore, reserveStore, reserveService, transferStore, priceService, cfg.App.Clock())
}

func provideAuctionService(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
	priceService core.IPriceOracleService,
) core.IAuctionService {
	return auctionservice.New(loanStore, collateralStore, reserveStore, reserveService, transferStore, priceService, cfg.App.Clock())
}

func provideRedeemService(
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	reserveStore core.IReserveStore,
	reserveService core.IReserveService,
	transferStore core.ITransferStore,
) core.IRedeemService {
	return redeemservice.New(loanStore, collateralStore, reserveStore, reserveService, transferStore, cfg.App.Clock())
}
