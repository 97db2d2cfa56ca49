package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100002
	// ErrInvalidArgument invalid argument
	ErrInvalidArgument ErrorCode = 100003

	// ErrReserveNotFound no reserve for the asset
	ErrReserveNotFound ErrorCode = 100100
	// ErrLoanNotFound no loan
	ErrLoanNotFound ErrorCode = 100101
	// ErrCollateralNotFound collateral collection not configured
	ErrCollateralNotFound ErrorCode = 100102
	// ErrCollateralInUse a live loan already holds the collateral
	ErrCollateralInUse ErrorCode = 100103
	// ErrInvalidPrice oracle price missing or stale
	ErrInvalidPrice ErrorCode = 100104

	// ErrInvalidLoanState operation attempted from the wrong loan state
	ErrInvalidLoanState ErrorCode = 100200
	// ErrInvalidHealthFactor draw would leave the position unsafe, or the
	// position is still safe where an unsafe one is required
	ErrInvalidHealthFactor ErrorCode = 100201
	// ErrInsufficientLiquidity reserve cannot fund a draw, a withdrawal or a refund
	ErrInsufficientLiquidity ErrorCode = 100202
	// ErrExceedMaxLoan draw above the collateral's loan-to-value cap
	ErrExceedMaxLoan ErrorCode = 100203

	// ErrAuctionExpired bid after the auction window closed
	ErrAuctionExpired ErrorCode = 100300
	// ErrAuctionNotExpired liquidation before the auction window closed
	ErrAuctionNotExpired ErrorCode = 100301
	// ErrNoBid auction has no standing bid
	ErrNoBid ErrorCode = 100302
	// ErrInsufficientBidIncrement bid below the required floor
	ErrInsufficientBidIncrement ErrorCode = 100303
	// ErrRedeemWindowExpired redeem after the redeem window closed
	ErrRedeemWindowExpired ErrorCode = 100304
	// ErrInsufficientRedeemAmount repayment below the redeem threshold
	ErrInsufficientRedeemAmount ErrorCode = 100305
	// ErrInsufficientFine bid fine below the fixed floor
	ErrInsufficientFine ErrorCode = 100306
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
