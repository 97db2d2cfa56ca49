package redeem

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
	testBorrower   = "user-borrower"
	testBidder     = "user-bidder"
)

type testEnv struct {
	reserves  *fakes.ReserveStore
	loans     *fakes.LoanStore
	transfers *fakes.TransferStore
	service   core.IRedeemService
}

func newTestEnv(t *testing.T, at time.Time) *testEnv {
	ctx := context.Background()

	env := &testEnv{
		reserves:  fakes.NewReserveStore(),
		loans:     fakes.NewLoanStore(),
		transfers: fakes.NewTransferStore(),
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

	// pool state as of the standing 627 bid: escrow already inside
	require.Nil(t, env.reserves.Create(ctx, nil, &core.Reserve{
		AssetID:            testAsset,
		Symbol:             "USDT",
		AvailableLiquidity: decimal.NewFromInt(1152),
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
	env.service = New(env.loans, collaterals, env.reserves, reserveService, env.transfers, core.AuctionClockFirstBid)

	return env
}

func (env *testEnv) newBidLoan(t *testing.T, at time.Time) *core.Loan {
	loan := &core.Loan{
		Borrower:       testBorrower,
		ReserveAssetID: testAsset,
		CollectionID:   testCollection,
		TokenID:        "token-42",
		ScaledDebt:     decimal.NewFromInt(475),
		State:          core.LoanStateAuction,
		Bidder:         testBidder,
		BidPrice:       decimal.NewFromInt(627),
		BidFine:        decimal.NewFromFloat(6.27),
		AuctionedAt:    sql.NullTime{Time: at.Add(-10 * time.Minute), Valid: true},
		FirstBidAt:     sql.NullTime{Time: at, Valid: true},
	}
	require.Nil(t, env.loans.Create(context.Background(), nil, loan))
	return loan
}

func TestRedeemRestoresActive(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)
	loan := env.newBidLoan(t, t0)

	// below 60% of the debt
	_, err := env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(280), decimal.NewFromFloat(6.27), t0)
	assert.Equal(t, core.ErrInsufficientRedeemAmount, err)

	// below the fixed fine
	_, err = env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(300), decimal.NewFromInt(5), t0)
	assert.Equal(t, core.ErrInsufficientFine, err)

	loan, err = env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(300), decimal.NewFromFloat(6.27), t0)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateActive, loan.State)
	assert.False(t, loan.HasBid())
	assert.True(t, loan.BidFine.IsZero())
	assert.False(t, loan.AuctionedAt.Valid)
	assert.True(t, loan.ScaledDebt.Equal(decimal.NewFromInt(175)), loan.ScaledDebt.String())

	// repayment in, escrow out
	reserve, err := env.reserves.Find(ctx, testAsset)
	require.Nil(t, err)
	assert.True(t, reserve.AvailableLiquidity.Equal(decimal.NewFromInt(1152+300-627)), reserve.AvailableLiquidity.String())
	assert.True(t, reserve.TotalScaledDebt.Equal(decimal.NewFromInt(175)))

	// the pool pays suppliers less once utilization falls
	assert.True(t, reserve.UtilizationRate.LessThan(decimal.NewFromFloat(0.475)))

	sent := env.transfers.Sent()
	require.Equal(t, 1, len(sent))
	assert.Equal(t, testBidder, sent[0].OpponentID)
	assert.True(t, sent[0].Amount.Equal(decimal.NewFromFloat(633.27)), sent[0].Amount.String())
}

func TestRedeemFullRepayCloses(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)
	loan := env.newBidLoan(t, t0)

	// 500 covers the whole debt of 475; excess fine of 1 rides back too
	loan, err := env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(500), decimal.NewFromFloat(7.27), t0)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateRepaid, loan.State)
	assert.True(t, loan.ScaledDebt.IsZero())

	var escrow, refund, collateral *core.Transfer
	for _, transfer := range env.transfers.Sent() {
		switch {
		case transfer.Kind == core.TransferKindCollateral:
			collateral = transfer
		case transfer.OpponentID == testBidder:
			escrow = transfer
		case transfer.OpponentID == testBorrower:
			refund = transfer
		}
	}

	require.NotNil(t, escrow)
	assert.True(t, escrow.Amount.Equal(decimal.NewFromFloat(633.27)))

	// 25 overpaid plus 1 excess fine
	require.NotNil(t, refund)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(26)), refund.Amount.String())

	require.NotNil(t, collateral)
	assert.Equal(t, testBorrower, collateral.OpponentID)
}

func TestRedeemWindowExpires(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)
	loan := env.newBidLoan(t, t0)

	_, err := env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(300), decimal.NewFromFloat(6.27), t0.Add(86401*time.Second))
	assert.Equal(t, core.ErrRedeemWindowExpired, err)
}

func TestRedeemWithoutBid(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, t0)

	loan := &core.Loan{
		Borrower:       testBorrower,
		ReserveAssetID: testAsset,
		CollectionID:   testCollection,
		TokenID:        "token-42",
		ScaledDebt:     decimal.NewFromInt(475),
		State:          core.LoanStateAuction,
		AuctionedAt:    sql.NullTime{Time: t0, Valid: true},
	}
	require.Nil(t, env.loans.Create(ctx, nil, loan))

	// no bid, no fine owed; the window runs from the trigger
	loan, err := env.service.Redeem(ctx, nil, loan.ID, decimal.NewFromInt(300), decimal.Zero, t0.Add(time.Hour))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStateActive, loan.State)
	assert.Equal(t, 0, len(env.transfers.Sent()))
}
