package rest

import (
	"net/http"

	"pawnshop/core"
	"pawnshop/handler/render"
	"pawnshop/handler/views"
)

func allReservesHandler(reserveStore core.IReserveStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reserves, err := reserveStore.All(r.Context())
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		reserveViews := make([]*views.Reserve, 0, len(reserves))
		for _, reserve := range reserves {
			reserveViews = append(reserveViews, &views.Reserve{
				Reserve:   *reserve,
				TotalDebt: reserve.TotalDebt(),
			})
		}

		render.JSON(w, reserveViews)
	}
}

func allCollateralsHandler(collateralStore core.ICollateralStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := collateralStore.All(r.Context())
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, configs)
	}
}
