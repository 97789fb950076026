package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is a persisted bid/ask quote for a currency pair.
// Pair is always stored in its canonical slash form, e.g. "USD/EUR".
type ExchangeRate struct {
	ID        uuid.UUID
	Pair      string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	UpdatedAt time.Time
}

// RateRequest is the input of add and update operations.
type RateRequest struct {
	Base      string
	Quote     string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// Pair joins the request currencies into the hyphenated form checked by IsValidPair.
func (r RateRequest) Pair() string {
	return JoinPair(r.Base, r.Quote)
}
