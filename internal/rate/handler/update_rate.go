package handler

import (
	"net/http"
)

// UpdateRate godoc
// @Summary      Update an existing exchange rate
// @Tags         exchange-rates
// @Accept       json
// @Produce      json
// @Param        rate  body      rate.RateInput  true  "Exchange rate"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /exchange-rates [put]
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRateInput(w, r)
	if !ok {
		return
	}
	if err := h.validator.Validate(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := in.ToRequest()
	if err := h.service.Update(r.Context(), req); err != nil {
		writeServiceError(w, err, "UpdateRate", req.Pair())
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "currency pair " + in.BaseCurrency + "/" + in.QuoteCurrency + " was updated",
	})
}
