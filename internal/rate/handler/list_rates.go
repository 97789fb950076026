package handler

import (
	"net/http"
)

// ListRates godoc
// @Summary      Get all exchange rates
// @Tags         exchange-rates
// @Produce      json
// @Success      200  {array}   RateResponse
// @Failure      500  {object}  errorResponse
// @Router       /exchange-rates [get]
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, "ListRates", "")
		return
	}

	res := make([]RateResponse, 0, len(rates))
	for _, rt := range rates {
		res = append(res, toRateResponse(rt))
	}
	writeJSON(w, http.StatusOK, res)
}
