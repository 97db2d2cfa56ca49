package core

import "encoding/json"

const (
	// ActionKeyService key service type :string
	ActionKeyService = "srv"
	// ActionKeyLoan loan id :uint64
	ActionKeyLoan = "ln"
	// ActionKeyCollection collateral collection id :string
	ActionKeyCollection = "col"
	// ActionKeyToken collateral token id :string
	ActionKeyToken = "tok"
	// ActionKeyAmount amount :decimal
	ActionKeyAmount = "amnt"
	// ActionKeyFine bid fine portion of a redeem payment :decimal
	ActionKeyFine = "fn"
	// ActionKeyAsset reserve asset id :string
	ActionKeyAsset = "ast"
	// ActionKeyUser user :string
	ActionKeyUser = "usr"
	// ActionKeyErrorCode error code :int
	ActionKeyErrorCode = "ec"
	// ActionKeyReferTrace refer trace :string
	ActionKeyReferTrace = "rftr"
)

const (
	// ActionServiceDeposit supply reserve liquidity
	ActionServiceDeposit = "dep"
	// ActionServiceBorrow open a loan against pledged collateral
	ActionServiceBorrow = "brw"
	// ActionServiceRepay repay loan debt
	ActionServiceRepay = "rpy"
	// ActionServiceBid bid on an auctioned loan
	ActionServiceBid = "bid"
	// ActionServiceRedeem redeem an auctioned loan
	ActionServiceRedeem = "rdm"
	// ActionServiceTrigger push an unhealthy loan into auction
	ActionServiceTrigger = "auc"
	// ActionServiceRefund refund a rejected payment
	ActionServiceRefund = "rfd"
)

// Action the json memo attached to an inbound payment
type Action map[string]string

// NewAction new action
func NewAction() Action {
	return make(Action)
}

// With set a key and return the action for chaining
func (a Action) With(key, value string) Action {
	a[key] = value
	return a
}

// Format format to string
func (a Action) Format() (string, error) {
	bts, err := json.Marshal(a)
	if err != nil {
		return "", err
	}

	return string(bts), nil
}

// ParseAction parse action from a memo string
func ParseAction(memo string) (Action, error) {
	var action Action
	if err := json.Unmarshal([]byte(memo), &action); err != nil {
		return nil, err
	}

	return action, nil
}
