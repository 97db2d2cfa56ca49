package loan

import (
	"context"
	"testing"
	"time"

	"pawnshop/core"
	"pawnshop/internal/fakes"
	"pawnshop/pkg/pawn"
	auctionservice "pawnshop/service/auction"
	redeemservice "pawnshop/service/redeem"
	reserveservice "pawnshop/service/reserve"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAsset      = "asset-usdt"
	testCollection = "collection-punk"
	testToken      = "token-42"
	testBorrower   = "user-borrower"
	testBidder     = "user-bidder"
)

type testEnv struct {
	reserves  *fakes.ReserveStore
	loans     *fakes.LoanStore
	transfers *fakes.TransferStore
	oracle    *fakes.Oracle

	reserveService core.IReserveService
	loanService    core.ILoanService
	auctionService core.IAuctionService
	redeemService  core.IRedeemService
}

func newTestEnv(t *testing.T, at time.Time) *testEnv {
	ctx := context.Background()

	env := &testEnv{
		reserves:  fakes.NewReserveStore(),
		loans:     fakes.NewLoanStore(),
		transfers: fakes.NewTransferStore(),
		oracle:    fakes.NewOracle(),
	}

	collaterals := fakes.NewCollateralStore()
	require.Nil(t, collaterals.Save(ctx, nil, &core.CollateralConfig{
		CollectionID:         testCollection,
		Symbol:               "PUNK",
		LTV:                  5000,
		LiquidationThreshold: 7000,
		RedeemThreshold:      6000,
		LiquidationBonus:     500,
		RedeemFine:           100,
		MinBidFine:           50,
		BidIncrement:         100,
		RedeemDuration:       86400,
		AuctionDuration:      172800,
	}))

	require.Nil(t, env.reserves.Create(ctx, nil, &core.Reserve{
		AssetID:        testAsset,
		Symbol:         "USDT",
		LiquidityIndex: decimal.New(1, 0),
		BorrowIndex:    decimal.New(1, 0),
		BaseRate:       decimal.NewFromFloat(0.02),
		Multiplier:     decimal.NewFromFloat(0.2),
		JumpMultiplier: decimal.NewFromFloat(1.5),
		Kink:           decimal.NewFromFloat(0.8),
		ReserveFactor:  decimal.NewFromFloat(0.1),
		LastAccruedAt:  at,
	}))

	env.reserveService = reserveservice.New(env.reserves, pawn.NewJumpRateStrategy())
	env.loanService = New(env.loans, collaterals, env.reserves, env.reserveService, env.transfers, env.oracle, core.AuctionClockFirstBid)
	env.auctionService = auctionservice.New(env.loans, collaterals, env.reserves, env.reserveService, env.transfers, env.oracle, core.AuctionClockFirstBid)
	env.redeemService = redeemservice.New(env.loans, collaterals, env.reserves, env.reserveService, env.transfers, core.AuctionClockFirstBid)

	env.oracle.SetPrice(testAsset, decimal.New(1, 0))
	env.oracle.SetPrice(testCollection, decimal.NewFromInt(1000))

	reserve, err := env.reserves.Find(ctx, testAsset)
	require.Nil(t, err)
	require.Nil(t, env.reserveService.Deposit(ctx, nil, reserve, decimal.NewFromInt(1000), at))

	return env
}

func (env *testEnv) liquidity(t *testing.T) decimal.Decimal {
	reserve, err := env.reserves.Find(context.Background(), testAsset)
	require.Nil(t, err)
	return reserve.AvailableLiquidity
}

func TestOpenCapsAtLTV(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	// collateral worth 1000 at 50% ltv caps the draw at 500
	_, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(501), t0)
	assert.Equal(t, core.ErrExceedMaxLoan, err)

	loan, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(475), t0)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateActive, loan.State)
	assert.True(t, loan.ScaledDebt.Equal(decimal.NewFromInt(475)))

	// the principal payout is scheduled
	sent := env.transfers.Sent()
	require.Equal(t, 1, len(sent))
	assert.Equal(t, testBorrower, sent[0].OpponentID)
	assert.True(t, sent[0].Amount.Equal(decimal.NewFromInt(475)))

	// the token now secures a live loan
	_, err = env.loanService.Open(ctx, nil, "someone-else", testAsset, testCollection, testToken, decimal.NewFromInt(10), t0)
	assert.Equal(t, core.ErrCollateralInUse, err)

	health, err := env.loanService.HealthFactor(ctx, loan, t0)
	require.Nil(t, err)
	// 1000 * 0.7 / 475
	assert.True(t, health.GreaterThan(decimal.New(1, 0)), health.String())
}

func TestTriggerRequiresUnhealthy(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	loan, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(475), t0)
	require.Nil(t, err)

	_, err = env.loanService.TriggerAuction(ctx, nil, loan.ID, t0)
	assert.Equal(t, core.ErrInvalidHealthFactor, err)

	// floor drops, the position goes under water
	env.oracle.SetPrice(testCollection, decimal.NewFromInt(600))

	t1 := t0.Add(time.Hour)
	health, err := env.loanService.HealthFactor(ctx, loan, t1)
	require.Nil(t, err)
	assert.True(t, health.LessThan(decimal.New(1, 0)), health.String())

	loan, err = env.loanService.TriggerAuction(ctx, nil, loan.ID, t1)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateAuction, loan.State)
	assert.True(t, loan.AuctionedAt.Valid)

	_, err = env.loanService.TriggerAuction(ctx, nil, loan.ID, t1)
	assert.Equal(t, core.ErrInvalidLoanState, err)
}

func TestFullRepayClosesLoan(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	loan, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(475), t0)
	require.Nil(t, err)

	// overpay after a year of interest; debt is 475 * 1.115
	t1 := t0.Add(365 * 24 * time.Hour)
	loan, err = env.loanService.Repay(ctx, nil, loan.ID, decimal.NewFromInt(600), t1)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateRepaid, loan.State)
	assert.True(t, loan.ScaledDebt.IsZero())

	var refund, collateral *core.Transfer
	for _, transfer := range env.transfers.Sent() {
		switch {
		case transfer.Kind == core.TransferKindCollateral:
			collateral = transfer
		case transfer.Amount.Equal(decimal.NewFromFloat(70.375)):
			refund = transfer
		}
	}

	require.NotNil(t, refund, "overpayment refunded")
	assert.Equal(t, testBorrower, refund.OpponentID)
	require.NotNil(t, collateral, "collateral returned")
	assert.Equal(t, testBorrower, collateral.OpponentID)
	assert.Equal(t, testCollection, collateral.CollectionID)
	assert.Equal(t, testToken, collateral.TokenID)

	// repaid is terminal
	_, err = env.loanService.Repay(ctx, nil, loan.ID, decimal.NewFromInt(1), t1)
	assert.Equal(t, core.ErrInvalidLoanState, err)
}

func TestLiquidateAfterAuction(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	loan, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(475), t0)
	require.Nil(t, err)

	env.oracle.SetPrice(testCollection, decimal.NewFromInt(600))
	t1 := t0.Add(time.Hour)
	loan, err = env.loanService.TriggerAuction(ctx, nil, loan.ID, t1)
	require.Nil(t, err)

	// no standing bid, nothing to settle with
	_, err = env.loanService.Liquidate(ctx, nil, loan.ID, t1.Add(200000*time.Second))
	assert.Equal(t, core.ErrNoBid, err)

	t2 := t1.Add(10 * time.Minute)
	loan, err = env.auctionService.Bid(ctx, nil, loan.ID, testBidder, decimal.NewFromInt(627), t2)
	require.Nil(t, err)

	// escrow sits in the pool while the auction runs
	assert.True(t, env.liquidity(t).Equal(decimal.NewFromInt(525+627)), env.liquidity(t).String())

	// window runs from the first bid
	_, err = env.loanService.Liquidate(ctx, nil, loan.ID, t2.Add(100000*time.Second))
	assert.Equal(t, core.ErrAuctionNotExpired, err)

	t3 := t2.Add(172801 * time.Second)
	loan, err = env.loanService.Liquidate(ctx, nil, loan.ID, t3)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateDefaulted, loan.State)
	assert.True(t, loan.ScaledDebt.IsZero())

	reserve, err := env.reserves.Find(ctx, testAsset)
	require.Nil(t, err)
	assert.True(t, reserve.TotalScaledDebt.IsZero())

	var collateral, surplus *core.Transfer
	for _, transfer := range env.transfers.Sent() {
		switch {
		case transfer.Kind == core.TransferKindCollateral:
			collateral = transfer
		case transfer.OpponentID == testBorrower && transfer.Memo == "":
			surplus = transfer
		}
	}

	require.NotNil(t, collateral, "collateral goes to the winner")
	assert.Equal(t, testBidder, collateral.OpponentID)

	// bid above the debt, the remainder goes back to the borrower
	require.NotNil(t, surplus, "surplus returned")
	assert.True(t, surplus.Amount.IsPositive())
	assert.True(t, surplus.Amount.LessThan(decimal.NewFromInt(152)), surplus.Amount.String())

	// defaulted is terminal
	_, err = env.loanService.Repay(ctx, nil, loan.ID, decimal.NewFromInt(1), t3)
	assert.Equal(t, core.ErrInvalidLoanState, err)
}

func TestBorrowIndexNeverDecreases(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	loan, err := env.loanService.Open(ctx, nil, testBorrower, testAsset, testCollection, testToken, decimal.NewFromInt(475), t0)
	require.Nil(t, err)

	last := decimal.New(1, 0)
	for i := 1; i <= 10; i++ {
		at := t0.Add(time.Duration(i) * time.Hour)
		_, err := env.loanService.HealthFactor(ctx, loan, at)
		require.Nil(t, err)

		reserve, err := env.reserves.Find(ctx, testAsset)
		require.Nil(t, err)
		require.Nil(t, env.reserveService.AccrueInterest(ctx, nil, reserve, at))
		assert.True(t, reserve.BorrowIndex.GreaterThanOrEqual(last))
		last = reserve.BorrowIndex
	}
}
