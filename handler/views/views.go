package views

import (
	"pawnshop/core"

	"github.com/shopspring/decimal"
)

// Reserve reserve view
type Reserve struct {
	core.Reserve
	TotalDebt decimal.Decimal `json:"total_debt"`
}

// Loan loan view
type Loan struct {
	core.Loan
	StateName    string          `json:"state_name"`
	PresentDebt  decimal.Decimal `json:"present_debt"`
	HealthFactor decimal.Decimal `json:"health_factor,omitempty"`
	MinBidPrice  decimal.Decimal `json:"min_bid_price,omitempty"`
}
