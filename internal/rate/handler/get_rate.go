package handler

import (
	"net/http"

	"forexrates/internal/domain"

	"github.com/go-chi/chi/v5"
)

// GetRate godoc
// @Summary      Get exchange rate for a currency pair
// @Description  Served from the store; fetched from the provider and stored when absent.
// @Tags         exchange-rates
// @Produce      json
// @Param        base   path      string  true  "Base currency code"
// @Param        quote  path      string  true  "Quote currency code"
// @Success      200    {object}  RateResponse
// @Failure      400    {object}  errorResponse
// @Failure      502    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /exchange-rates/{base}/{quote} [get]
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	pair := domain.JoinPair(normalizeCode(chi.URLParam(r, "base")), normalizeCode(chi.URLParam(r, "quote")))
	h.getOrFetch(w, r, pair, "GetRate")
}

// GetRateByPair godoc
// @Summary      Get exchange rate by hyphenated currency pair
// @Tags         exchange-rates
// @Produce      json
// @Param        pair  path      string  true  "Currency pair, e.g. USD-EUR"
// @Success      200   {object}  RateResponse
// @Failure      400   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /exchange-rates/{pair} [get]
func (h *Handler) GetRateByPair(w http.ResponseWriter, r *http.Request) {
	h.getOrFetch(w, r, normalizeCode(chi.URLParam(r, "pair")), "GetRateByPair")
}

func (h *Handler) getOrFetch(w http.ResponseWriter, r *http.Request, pair, handlerName string) {
	rt, err := h.service.GetOrFetch(r.Context(), pair)
	if err != nil {
		writeServiceError(w, err, handlerName, pair)
		return
	}
	writeJSON(w, http.StatusOK, toRateResponse(rt))
}
