package rate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"forexrates/internal/domain"
	"forexrates/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Testify mocks ---

type MockRateStore struct{ mock.Mock }

func (m *MockRateStore) FindByPair(ctx context.Context, pair string) (domain.ExchangeRate, bool, error) {
	args := m.Called(ctx, pair)
	r, _ := args.Get(0).(domain.ExchangeRate)
	return r, args.Bool(1), args.Error(2)
}

func (m *MockRateStore) Insert(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	args := m.Called(ctx, rate)
	r, _ := args.Get(0).(domain.ExchangeRate)
	return r, args.Error(1)
}

func (m *MockRateStore) Update(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	args := m.Called(ctx, rate)
	r, _ := args.Get(0).(domain.ExchangeRate)
	return r, args.Error(1)
}

func (m *MockRateStore) Delete(ctx context.Context, pair string) (bool, error) {
	args := m.Called(ctx, pair)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateStore) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx)
	rates, _ := args.Get(0).([]domain.ExchangeRate)
	return rates, args.Error(1)
}

type MockRateProvider struct{ mock.Mock }

func (m *MockRateProvider) Fetch(ctx context.Context, pair string) (domain.ExchangeRate, error) {
	args := m.Called(ctx, pair)
	r, _ := args.Get(0).(domain.ExchangeRate)
	return r, args.Error(1)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *MockRateStore, provider *MockRateProvider) *Service {
	svc := NewService(store, provider, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usdEurRequest() domain.RateRequest {
	return domain.RateRequest{Base: "USD", Quote: "EUR", Bid: dec("1.09"), Ask: dec("1.10"), Timestamp: fixedNow}
}

// --- ListAll ---

func TestService_ListAll_Delegates(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	want := []domain.ExchangeRate{{ID: uuid.New(), Pair: "USD/EUR"}}
	store.On("ListAll", mock.Anything).Return(want, nil).Once()

	got, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
	store.AssertExpectations(t)
}

// --- Add ---

func TestService_Add_Success(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.Pair == "USD/EUR" && r.Bid.Equal(dec("1.09")) && r.Ask.Equal(dec("1.10")) && r.UpdatedAt.Equal(fixedNow)
	})).Return(domain.ExchangeRate{ID: uuid.New(), Pair: "USD/EUR"}, nil).Once()

	require.NoError(t, svc.Add(context.Background(), usdEurRequest()))
	store.AssertExpectations(t)
}

func TestService_Add_Duplicate(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{ID: uuid.New(), Pair: "USD/EUR"}, true, nil).Once()

	err := svc.Add(context.Background(), usdEurRequest())
	require.ErrorIs(t, err, domain.ErrDuplicatePair)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_Add_LostInsertRace(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	raceErr := &domain.StoreError{Op: "insert", Pair: "USD/EUR", Err: domain.ErrDuplicatePair}
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return(domain.ExchangeRate{}, raceErr).Once()

	err := svc.Add(context.Background(), usdEurRequest())
	require.ErrorIs(t, err, domain.ErrDuplicatePair)
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
}

func TestService_Add_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  domain.RateRequest
		want error
	}{
		{"lowercase base", domain.RateRequest{Base: "usd", Quote: "EUR", Bid: dec("1"), Ask: dec("1")}, domain.ErrInvalidPair},
		{"short quote", domain.RateRequest{Base: "USD", Quote: "EU", Bid: dec("1"), Ask: dec("1")}, domain.ErrInvalidPair},
		{"zero bid", domain.RateRequest{Base: "USD", Quote: "EUR", Bid: decimal.Zero, Ask: dec("1")}, domain.ErrInvalidPrice},
		{"negative ask", domain.RateRequest{Base: "USD", Quote: "EUR", Bid: dec("1"), Ask: dec("-1")}, domain.ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRateStore)
			svc := newTestService(store, new(MockRateProvider))

			err := svc.Add(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
			store.AssertNotCalled(t, "FindByPair", mock.Anything, mock.Anything)
		})
	}
}

// --- Update ---

func TestService_Update_NotFound(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()

	err := svc.Update(context.Background(), usdEurRequest())
	require.ErrorIs(t, err, domain.ErrPairNotFound)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_Update_PreservesIdentity(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	id := uuid.New()
	existing := domain.ExchangeRate{
		ID:        id,
		Pair:      "USD/EUR",
		Bid:       dec("1.00"),
		Ask:       dec("1.01"),
		UpdatedAt: fixedNow.Add(-time.Hour),
	}
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(existing, true, nil).Once()
	store.On("Update", mock.Anything, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.ID == id &&
			r.Pair == "USD/EUR" &&
			r.Bid.Equal(dec("1.09")) &&
			r.Ask.Equal(dec("1.10")) &&
			r.UpdatedAt.Equal(fixedNow)
	})).Return(existing, nil).Once()

	require.NoError(t, svc.Update(context.Background(), usdEurRequest()))
	store.AssertExpectations(t)
}

func TestService_Update_InvalidPair(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	req := usdEurRequest()
	req.Quote = "EURO"
	require.ErrorIs(t, svc.Update(context.Background(), req), domain.ErrInvalidPair)
	store.AssertNotCalled(t, "FindByPair", mock.Anything, mock.Anything)
}

// --- Delete ---

func TestService_Delete(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	store.On("Delete", mock.Anything, "USD/EUR").Return(true, nil).Once()
	require.NoError(t, svc.Delete(context.Background(), "USD-EUR"))

	store.On("Delete", mock.Anything, "GBP/USD").Return(false, domain.ErrPairNotFound).Once()
	require.ErrorIs(t, svc.Delete(context.Background(), "GBP-USD"), domain.ErrPairNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), "GBP/USD"), domain.ErrInvalidPair)
	store.AssertExpectations(t)
}

// --- GetOrFetch ---

func TestService_GetOrFetch_HitSkipsProvider(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	stored := domain.ExchangeRate{ID: uuid.New(), Pair: "USD/EUR", Bid: dec("1.09"), Ask: dec("1.10"), UpdatedAt: fixedNow.Add(-72 * time.Hour)}
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(stored, true, nil).Once()

	got, err := svc.GetOrFetch(context.Background(), "USD-EUR")
	require.NoError(t, err)
	require.Equal(t, stored, got)
	provider.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_GetOrFetch_MissFetchesAndStores(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	fetched := domain.ExchangeRate{Pair: "USD/JPY", Bid: dec("149.13"), Ask: dec("149.14"), UpdatedAt: fixedNow}
	inserted := fetched
	inserted.ID = uuid.New()

	store.On("FindByPair", mock.Anything, "USD/JPY").Return(domain.ExchangeRate{}, false, nil).Once()
	provider.On("Fetch", mock.Anything, "USD/JPY").Return(fetched, nil).Once()
	store.On("Insert", mock.Anything, fetched).Return(inserted, nil).Once()

	got, err := svc.GetOrFetch(context.Background(), "USD-JPY")
	require.NoError(t, err)
	require.Equal(t, inserted, got)
	require.Equal(t, "USD/JPY", got.Pair)
	require.True(t, got.Bid.Equal(dec("149.13")))
	require.True(t, got.Ask.Equal(dec("149.14")))
	store.AssertExpectations(t)
	provider.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Insert", 1)
}

func TestService_GetOrFetch_ProviderFailureWritesNothing(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	cause := fmt.Errorf("dial tcp: %w", domain.ErrTransport)
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()
	provider.On("Fetch", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, cause).Once()

	_, err := svc.GetOrFetch(context.Background(), "USD-EUR")
	var acqErr *domain.AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	require.Equal(t, "USD/EUR", acqErr.Pair)
	require.ErrorIs(t, err, domain.ErrTransport)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_GetOrFetch_InvalidPairTouchesNothing(t *testing.T) {
	for _, pair := range []string{"INVALID-PAIR", "USDEUR", "", "usd-eur", "USD/EUR"} {
		t.Run(pair, func(t *testing.T) {
			store := new(MockRateStore)
			provider := new(MockRateProvider)
			svc := newTestService(store, provider)

			_, err := svc.GetOrFetch(context.Background(), pair)
			require.ErrorIs(t, err, domain.ErrInvalidPair)
			store.AssertNotCalled(t, "FindByPair", mock.Anything, mock.Anything)
			provider.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
		})
	}
}

func TestService_GetOrFetch_StoreErrorPassesThrough(t *testing.T) {
	store := new(MockRateStore)
	svc := newTestService(store, new(MockRateProvider))

	storeErr := &domain.StoreError{Op: "select", Pair: "USD/EUR", Err: errors.New("connection reset")}
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, storeErr).Once()

	_, err := svc.GetOrFetch(context.Background(), "USD-EUR")
	require.Equal(t, storeErr, err)
}

func TestService_GetOrFetch_RecordsMetrics(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	m := metrics.NewRateMetrics(prometheus.NewRegistry())
	svc := NewService(store, provider, m)

	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{Pair: "USD/EUR"}, true, nil).Once()
	store.On("FindByPair", mock.Anything, "GBP/USD").Return(domain.ExchangeRate{}, false, nil).Once()
	provider.On("Fetch", mock.Anything, "GBP/USD").Return(domain.ExchangeRate{}, fmt.Errorf("x: %w", domain.ErrUnknownPair)).Once()

	_, err := svc.GetOrFetch(context.Background(), "USD-EUR")
	require.NoError(t, err)
	_, err = svc.GetOrFetch(context.Background(), "GBP-USD")
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("unknown_pair")))
}

// --- GetLatest ---

func TestService_GetLatest_InsertsWhenAbsent(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	fetched := domain.ExchangeRate{Pair: "USD/EUR", Bid: dec("1.09"), Ask: dec("1.10"), UpdatedAt: fixedNow}
	inserted := fetched
	inserted.ID = uuid.New()

	provider.On("Fetch", mock.Anything, "USD/EUR").Return(fetched, nil).Once()
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()
	store.On("Insert", mock.Anything, fetched).Return(inserted, nil).Once()

	got, err := svc.GetLatest(context.Background(), "USD-EUR")
	require.NoError(t, err)
	require.Equal(t, inserted, got)
	store.AssertExpectations(t)
}

func TestService_GetLatest_DoesNotOverwriteExisting(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	stored := domain.ExchangeRate{ID: uuid.New(), Pair: "USD/EUR", Bid: dec("1.00"), Ask: dec("1.01")}
	fetched := domain.ExchangeRate{Pair: "USD/EUR", Bid: dec("1.09"), Ask: dec("1.10"), UpdatedAt: fixedNow}

	provider.On("Fetch", mock.Anything, "USD/EUR").Return(fetched, nil).Once()
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(stored, true, nil).Once()

	got, err := svc.GetLatest(context.Background(), "USD-EUR")
	require.NoError(t, err)
	require.Equal(t, fetched, got)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_GetLatest_LostInsertRaceReturnsFetched(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	fetched := domain.ExchangeRate{Pair: "USD/EUR", Bid: dec("1.09"), Ask: dec("1.10"), UpdatedAt: fixedNow}
	provider.On("Fetch", mock.Anything, "USD/EUR").Return(fetched, nil).Once()
	store.On("FindByPair", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, false, nil).Once()
	store.On("Insert", mock.Anything, fetched).
		Return(domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: "USD/EUR", Err: domain.ErrDuplicatePair}).Once()

	got, err := svc.GetLatest(context.Background(), "USD-EUR")
	require.NoError(t, err)
	require.Equal(t, fetched, got)
}

func TestService_GetLatest_ProviderFailure(t *testing.T) {
	store := new(MockRateStore)
	provider := new(MockRateProvider)
	svc := newTestService(store, provider)

	provider.On("Fetch", mock.Anything, "USD/EUR").Return(domain.ExchangeRate{}, fmt.Errorf("x: %w", domain.ErrMalformedQuote)).Once()

	_, err := svc.GetLatest(context.Background(), "USD-EUR")
	var acqErr *domain.AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	require.ErrorIs(t, err, domain.ErrMalformedQuote)
	store.AssertNotCalled(t, "FindByPair", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_GetLatest_InvalidPair(t *testing.T) {
	provider := new(MockRateProvider)
	svc := newTestService(new(MockRateStore), provider)

	_, err := svc.GetLatest(context.Background(), "usd-eur")
	require.ErrorIs(t, err, domain.ErrInvalidPair)
	provider.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}
