package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"forexrates/internal/domain"
	"forexrates/internal/rate"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 10

type RateService interface {
	ListAll(ctx context.Context) ([]domain.ExchangeRate, error)
	Add(ctx context.Context, req domain.RateRequest) error
	Update(ctx context.Context, req domain.RateRequest) error
	Delete(ctx context.Context, pair string) error
	GetOrFetch(ctx context.Context, pair string) (domain.ExchangeRate, error)
	GetLatest(ctx context.Context, pair string) (domain.ExchangeRate, error)
}

type RequestValidator interface {
	Validate(in rate.RateInput) error
}

type Handler struct {
	validator RequestValidator
	service   RateService
}

func NewRateHandler(service RateService, validator RequestValidator) *Handler {
	return &Handler{validator: validator, service: service}
}

type RateResponse struct {
	ID        string          `json:"id"`
	Pair      string          `json:"pair"`
	Bid       decimal.Decimal `json:"bid" swaggertype:"string" example:"149.13"`
	Ask       decimal.Decimal `json:"ask" swaggertype:"string" example:"149.14"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toRateResponse(r domain.ExchangeRate) RateResponse {
	return RateResponse{
		ID:        r.ID.String(),
		Pair:      r.Pair,
		Bid:       r.Bid,
		Ask:       r.Ask,
		UpdatedAt: r.UpdatedAt,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, errorResponse{Error: errorMsg})
}

// writeServiceError maps service failures onto HTTP statuses. Unexpected
// failures are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, err error, handlerName, pair string) {
	var acqErr *domain.AcquisitionError
	switch {
	case errors.Is(err, domain.ErrInvalidPair),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, rate.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPairNotFound):
		writeError(w, http.StatusNotFound, domain.ErrPairNotFound.Error())
	case errors.Is(err, domain.ErrDuplicatePair):
		writeError(w, http.StatusConflict, domain.ErrDuplicatePair.Error())
	case errors.As(err, &acqErr):
		logrus.WithError(err).WithFields(logrus.Fields{"handler": handlerName, "pair": pair}).Warn("rate acquisition failed")
		writeError(w, http.StatusBadGateway, "couldn't get rate from provider")
	default:
		msg := "ups, something went wrong this time"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": handlerName, "pair": pair}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func decodeRateInput(w http.ResponseWriter, r *http.Request) (rate.RateInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var in rate.RateInput
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return rate.RateInput{}, false
	}
	in.Normalize()
	return in, true
}
