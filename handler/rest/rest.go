package rest

import (
	"errors"
	"net/http"

	"pawnshop/core"
	"pawnshop/handler/render"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	reserveStore core.IReserveStore,
	loanStore core.ILoanStore,
	collateralStore core.ICollateralStore,
	loanService core.ILoanService,
	auctionService core.IAuctionService,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/reserves", allReservesHandler(reserveStore))
	router.Get("/collaterals", allCollateralsHandler(collateralStore))
	router.Get("/loans", loansHandler(reserveStore, loanStore, loanService))
	router.Get("/loans/{loan_id}", loanHandler(reserveStore, loanStore, loanService, auctionService))

	return router
}
