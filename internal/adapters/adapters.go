package adapters

import (
	"context"
	"forexrates/internal/domain"
)

// RateStore persists exchange rates keyed by canonical pair.
type RateStore interface {
	FindByPair(ctx context.Context, pair string) (domain.ExchangeRate, bool, error)
	Insert(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error)
	Update(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error)
	Delete(ctx context.Context, pair string) (bool, error)
	ListAll(ctx context.Context) ([]domain.ExchangeRate, error)
}

// RateProvider fetches a live quote for a validated canonical pair.
type RateProvider interface {
	Fetch(ctx context.Context, pair string) (domain.ExchangeRate, error)
}
