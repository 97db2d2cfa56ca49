package auction

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"pawnshop/core"
	"pawnshop/internal/fakes"
	"pawnshop/pkg/pawn"
	reserveservice "pawnshop/service/reserve"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAsset      = "asset-usdt"
	testCollection = "collection-punk"
)

type testEnv struct {
	reserves  *fakes.ReserveStore
	loans     *fakes.LoanStore
	transfers *fakes.TransferStore
	oracle    *fakes.Oracle
	service   core.IAuctionService
}

func newTestEnv(t *testing.T, at time.Time, clock core.AuctionClock) *testEnv {
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
		AssetID:            testAsset,
		Symbol:             "USDT",
		AvailableLiquidity: decimal.NewFromInt(525),
		TotalScaledDebt:    decimal.NewFromInt(475),
		LiquidityIndex:     decimal.New(1, 0),
		BorrowIndex:        decimal.New(1, 0),
		BaseRate:           decimal.NewFromFloat(0.02),
		Multiplier:         decimal.NewFromFloat(0.2),
		JumpMultiplier:     decimal.NewFromFloat(1.5),
		Kink:               decimal.NewFromFloat(0.8),
		ReserveFactor:      decimal.NewFromFloat(0.1),
		LastAccruedAt:      at,
	}))

	reserveService := reserveservice.New(env.reserves, pawn.NewJumpRateStrategy())
	env.service = New(env.loans, collaterals, env.reserves, reserveService, env.transfers, env.oracle, clock)

	env.oracle.SetPrice(testAsset, decimal.New(1, 0))
	env.oracle.SetPrice(testCollection, decimal.NewFromInt(600))

	return env
}

func (env *testEnv) newAuctionLoan(t *testing.T, at time.Time) *core.Loan {
	loan := &core.Loan{
		Borrower:       "user-borrower",
		ReserveAssetID: testAsset,
		CollectionID:   testCollection,
		TokenID:        "token-42",
		ScaledDebt:     decimal.NewFromInt(475),
		State:          core.LoanStateAuction,
		AuctionedAt:    nullTime(at),
	}
	require.Nil(t, env.loans.Create(context.Background(), nil, loan))
	return loan
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func TestFirstBidFloor(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0, core.AuctionClockFirstBid)
	loan := env.newAuctionLoan(t, t0)

	// 600 * 0.95 beats the debt of 475
	floor, err := env.service.MinBidPrice(ctx, loan, t0)
	require.Nil(t, err)
	assert.True(t, floor.Equal(decimal.NewFromInt(570)), floor.String())

	_, err = env.service.Bid(ctx, nil, loan.ID, "user-bidder", decimal.NewFromInt(560), t0)
	assert.Equal(t, core.ErrInsufficientBidIncrement, err)

	loan, err = env.service.Bid(ctx, nil, loan.ID, "user-bidder", decimal.NewFromInt(627), t0)
	require.Nil(t, err)
	assert.Equal(t, "user-bidder", loan.Bidder)
	assert.True(t, loan.FirstBidAt.Valid)
	// max(627 * 0.01, 475 * 0.005)
	assert.True(t, loan.BidFine.Equal(decimal.NewFromFloat(6.27)), loan.BidFine.String())

	// escrow entered the pool
	reserve, err := env.reserves.Find(ctx, testAsset)
	require.Nil(t, err)
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromInt(525+627)))
}

func TestOutbidRefundsPreviousBidder(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0, core.AuctionClockFirstBid)
	loan := env.newAuctionLoan(t, t0)

	loan, err := env.service.Bid(ctx, nil, loan.ID, "bidder-one", decimal.NewFromInt(627), t0)
	require.Nil(t, err)

	// next bid must clear the standing bid by the increment
	floor, err := env.service.MinBidPrice(ctx, loan, t0)
	require.Nil(t, err)
	assert.True(t, floor.Equal(decimal.NewFromFloat(633.27)), floor.String())

	_, err = env.service.Bid(ctx, nil, loan.ID, "bidder-two", decimal.NewFromInt(630), t0)
	assert.Equal(t, core.ErrInsufficientBidIncrement, err)

	loan, err = env.service.Bid(ctx, nil, loan.ID, "bidder-two", decimal.NewFromFloat(633.27), t0)
	require.Nil(t, err)
	assert.Equal(t, "bidder-two", loan.Bidder)
	// the fine stays fixed at the first bid
	assert.True(t, loan.BidFine.Equal(decimal.NewFromFloat(6.27)))

	// displaced escrow leaves the pool and rides back to bidder one
	reserve, err := env.reserves.Find(ctx, testAsset)
	require.Nil(t, err)
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromFloat(525+633.27)), reserve.AvailableLiquidity.String())

	sent := env.transfers.Sent()
	require.Equal(t, 1, len(sent))
	assert.Equal(t, "bidder-one", sent[0].OpponentID)
	assert.True(t, sent[0].Amount.Equal(decimal.NewFromInt(627)))
}

func TestBidAfterWindowExpires(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0, core.AuctionClockFirstBid)
	loan := env.newAuctionLoan(t, t0)

	loan, err := env.service.Bid(ctx, nil, loan.ID, "bidder-one", decimal.NewFromInt(627), t0)
	require.Nil(t, err)

	_, err = env.service.Bid(ctx, nil, loan.ID, "bidder-two", decimal.NewFromInt(700), t0.Add(172801*time.Second))
	assert.Equal(t, core.ErrAuctionExpired, err)
}

func TestTriggerClockAnchorsAtTrigger(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0, core.AuctionClockTrigger)
	loan := env.newAuctionLoan(t, t0)

	// with the trigger clock even a first bid can arrive too late
	_, err := env.service.Bid(ctx, nil, loan.ID, "bidder-one", decimal.NewFromInt(627), t0.Add(172801*time.Second))
	assert.Equal(t, core.ErrAuctionExpired, err)
}

func TestBidRequiresAuctionState(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0, core.AuctionClockFirstBid)

	loan := &core.Loan{
		Borrower:       "user-borrower",
		ReserveAssetID: testAsset,
		CollectionID:   testCollection,
		TokenID:        "token-42",
		ScaledDebt:     decimal.NewFromInt(475),
		State:          core.LoanStateActive,
	}
	require.Nil(t, env.loans.Create(ctx, nil, loan))

	_, err := env.service.Bid(ctx, nil, loan.ID, "user-bidder", decimal.NewFromInt(627), t0)
	assert.Equal(t, core.ErrInvalidLoanState, err)
}
