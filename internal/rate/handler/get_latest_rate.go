package handler

import (
	"net/http"

	"forexrates/internal/domain"

	"github.com/go-chi/chi/v5"
)

// GetLatestRate godoc
// @Summary      Get the latest exchange rate from the provider
// @Description  Always asks the provider; stores the quote only when the pair has no record yet.
// @Tags         exchange-rates
// @Produce      json
// @Param        base   path      string  true  "Base currency code"
// @Param        quote  path      string  true  "Quote currency code"
// @Success      200    {object}  RateResponse
// @Failure      400    {object}  errorResponse
// @Failure      502    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /exchange-rates/latest/{base}/{quote} [get]
func (h *Handler) GetLatestRate(w http.ResponseWriter, r *http.Request) {
	pair := domain.JoinPair(normalizeCode(chi.URLParam(r, "base")), normalizeCode(chi.URLParam(r, "quote")))

	rt, err := h.service.GetLatest(r.Context(), pair)
	if err != nil {
		writeServiceError(w, err, "GetLatestRate", pair)
		return
	}
	writeJSON(w, http.StatusOK, toRateResponse(rt))
}
