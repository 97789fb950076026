package handler

import (
	"net/http"
)

// CreateRate godoc
// @Summary      Create a new exchange rate
// @Tags         exchange-rates
// @Accept       json
// @Produce      json
// @Param        rate  body      rate.RateInput  true  "Exchange rate"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /exchange-rates [post]
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRateInput(w, r)
	if !ok {
		return
	}
	if err := h.validator.Validate(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := in.ToRequest()
	if err := h.service.Add(r.Context(), req); err != nil {
		writeServiceError(w, err, "CreateRate", req.Pair())
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "currency pair " + in.BaseCurrency + "/" + in.QuoteCurrency + " was created",
	})
}
