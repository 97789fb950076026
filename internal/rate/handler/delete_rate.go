package handler

import (
	"net/http"

	"forexrates/internal/domain"

	"github.com/go-chi/chi/v5"
)

// DeleteRate godoc
// @Summary      Delete an exchange rate
// @Tags         exchange-rates
// @Produce      json
// @Param        base   path      string  true  "Base currency code"
// @Param        quote  path      string  true  "Quote currency code"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /exchange-rates/{base}/{quote} [delete]
func (h *Handler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	base := normalizeCode(chi.URLParam(r, "base"))
	quote := normalizeCode(chi.URLParam(r, "quote"))
	pair := domain.JoinPair(base, quote)

	if err := h.service.Delete(r.Context(), pair); err != nil {
		writeServiceError(w, err, "DeleteRate", pair)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "currency pair " + base + "/" + quote + " was deleted",
	})
}
