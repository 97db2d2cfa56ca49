package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pawnshop/core"
	"pawnshop/handler/param"
	"pawnshop/handler/render"
	"pawnshop/handler/views"

	"github.com/jinzhu/gorm"
)

func loansHandler(reserveStore core.IReserveStore, loanStore core.ILoanStore, loanService core.ILoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			UserID string `json:"user"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.UserID == "" {
			render.BadRequest(w, errors.New("user required"))
			return
		}

		ctx := r.Context()
		loans, err := loanStore.FindByBorrower(ctx, params.UserID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		now := time.Now()
		loanViews := make([]*views.Loan, 0, len(loans))
		for _, loan := range loans {
			loanViews = append(loanViews, loanView(ctx, reserveStore, loanService, loan, now))
		}

		render.JSON(w, loanViews)
	}
}

func loanHandler(reserveStore core.IReserveStore, loanStore core.ILoanStore, loanService core.ILoanService, auctionService core.IAuctionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, err := strconv.ParseUint(param.String(r, "loan_id"), 10, 64)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		ctx := r.Context()
		loan, err := loanStore.Find(ctx, loanID)
		if err != nil {
			if gorm.IsRecordNotFoundError(err) {
				render.NotFoundRequest(w, errors.New("loan not found"))
			} else {
				render.BadRequest(w, err)
			}
			return
		}

		now := time.Now()
		view := loanView(ctx, reserveStore, loanService, loan, now)
		if loan.State == core.LoanStateAuction {
			if floor, err := auctionService.MinBidPrice(ctx, loan, now); err == nil {
				view.MinBidPrice = floor
			}
		}

		render.JSON(w, view)
	}
}

func loanView(ctx context.Context, reserveStore core.IReserveStore, loanService core.ILoanService, loan *core.Loan, now time.Time) *views.Loan {
	view := &views.Loan{Loan: *loan, StateName: loan.State.String()}

	if reserve, err := reserveStore.Find(ctx, loan.ReserveAssetID); err == nil {
		view.PresentDebt = loan.PresentDebt(reserve.BorrowIndex)
	}

	if !loan.State.IsTerminal() {
		if health, err := loanService.HealthFactor(ctx, loan, now); err == nil {
			view.HealthFactor = health
		}
	}

	return view
}
