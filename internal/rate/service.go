package rate

import (
	"context"
	"errors"
	"time"

	"forexrates/internal/adapters"
	"forexrates/internal/domain"
	"forexrates/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

// Service is the read-through rate cache over a RateStore and a RateProvider.
// It holds no state between calls; pair uniqueness is left to the store.
type Service struct {
	store    adapters.RateStore
	provider adapters.RateProvider
	metrics  *metrics.RateMetrics
	now      func() time.Time
}

func (s *Service) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) Add(ctx context.Context, req domain.RateRequest) error {
	pair := req.Pair()
	if err := validateRequest(pair, req); err != nil {
		return err
	}

	key := domain.ToStorageKey(pair)
	_, found, err := s.store.FindByPair(ctx, key)
	if err != nil {
		return err
	}
	if found {
		return domain.ErrDuplicatePair
	}

	_, err = s.store.Insert(ctx, domain.ExchangeRate{
		Pair:      key,
		Bid:       req.Bid,
		Ask:       req.Ask,
		UpdatedAt: s.now().UTC(),
	})
	return err
}

// Update replaces bid, ask and updatedAt of an existing record. ID and pair
// are preserved.
func (s *Service) Update(ctx context.Context, req domain.RateRequest) error {
	pair := req.Pair()
	if err := validateRequest(pair, req); err != nil {
		return err
	}

	existing, found, err := s.store.FindByPair(ctx, domain.ToStorageKey(pair))
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrPairNotFound
	}

	existing.Bid = req.Bid
	existing.Ask = req.Ask
	existing.UpdatedAt = s.now().UTC()
	_, err = s.store.Update(ctx, existing)
	return err
}

func (s *Service) Delete(ctx context.Context, pair string) error {
	if !domain.IsValidPair(pair) {
		return domain.ErrInvalidPair
	}
	_, err := s.store.Delete(ctx, domain.ToStorageKey(pair))
	return err
}

// GetOrFetch returns the stored rate for pair. Only on a miss is the provider
// consulted and its quote persisted. Stored rates are never refreshed here.
func (s *Service) GetOrFetch(ctx context.Context, pair string) (domain.ExchangeRate, error) {
	if !domain.IsValidPair(pair) {
		return domain.ExchangeRate{}, domain.ErrInvalidPair
	}
	key := domain.ToStorageKey(pair)

	stored, found, err := s.store.FindByPair(ctx, key)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	s.metrics.ObserveLookup(found)
	if found {
		logrus.WithFields(logrus.Fields{
			"pair":       key,
			"updated_at": stored.UpdatedAt,
		}).Debug("Rate served from store")
		return stored, nil
	}

	fetched, err := s.fetch(ctx, key)
	if err != nil {
		return domain.ExchangeRate{}, err
	}

	inserted, err := s.store.Insert(ctx, fetched)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	logrus.WithField("pair", key).Info("Rate fetched from provider and stored")
	return inserted, nil
}

// GetLatest always asks the provider. The quote is persisted only when the
// pair has no record yet; an existing record is left untouched.
func (s *Service) GetLatest(ctx context.Context, pair string) (domain.ExchangeRate, error) {
	if !domain.IsValidPair(pair) {
		return domain.ExchangeRate{}, domain.ErrInvalidPair
	}
	key := domain.ToStorageKey(pair)

	fetched, err := s.fetch(ctx, key)
	if err != nil {
		return domain.ExchangeRate{}, err
	}

	_, found, err := s.store.FindByPair(ctx, key)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	if found {
		return fetched, nil
	}

	inserted, err := s.store.Insert(ctx, fetched)
	switch {
	case errors.Is(err, domain.ErrDuplicatePair):
		// lost the insert race; the other record wins
		return fetched, nil
	case err != nil:
		return domain.ExchangeRate{}, err
	}
	logrus.WithField("pair", key).Info("Rate fetched from provider and stored")
	return inserted, nil
}

func (s *Service) fetch(ctx context.Context, pair string) (domain.ExchangeRate, error) {
	started := time.Now()
	rate, err := s.provider.Fetch(ctx, pair)
	s.metrics.ObserveFetch(err, time.Since(started))
	if err != nil {
		logrus.WithError(err).WithField("pair", pair).Warn("Failed to acquire rate from provider")
		return domain.ExchangeRate{}, &domain.AcquisitionError{Pair: pair, Err: err}
	}
	return rate, nil
}

func validateRequest(pair string, req domain.RateRequest) error {
	if !domain.IsValidPair(pair) {
		return domain.ErrInvalidPair
	}
	if !req.Bid.IsPositive() || !req.Ask.IsPositive() {
		return domain.ErrInvalidPrice
	}
	return nil
}

// NewService builds the rate service. m may be nil.
func NewService(store adapters.RateStore, provider adapters.RateProvider, m *metrics.RateMetrics) *Service {
	return &Service{
		store:    store,
		provider: provider,
		metrics:  m,
		now:      time.Now,
	}
}
