package metrics

import (
	"errors"
	"forexrates/internal/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RateMetrics groups the exchange-rate metrics. A nil *RateMetrics is
// valid and records nothing.
type RateMetrics struct {
	// lookups by result: hit | miss
	LookupsTotal *prometheus.CounterVec

	// provider fetches by outcome: ok | unknown_pair | malformed | transport | decode | error
	FetchesTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram

	StoredPairs prometheus.Gauge
}

func (m *RateMetrics) ObserveLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LookupsTotal.WithLabelValues(result).Inc()
}

func (m *RateMetrics) ObserveFetch(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(fetchOutcome(err)).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

func (m *RateMetrics) SetStoredPairs(n int) {
	if m == nil {
		return
	}
	m.StoredPairs.Set(float64(n))
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownPair):
		return "unknown_pair"
	case errors.Is(err, domain.ErrMalformedQuote):
		return "malformed"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrDecode):
		return "decode"
	default:
		return "error"
	}
}

// NewRateMetrics registers the rate metrics on reg.
func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	factory := promauto.With(reg)
	return &RateMetrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_lookups_total",
				Help: "Rate lookups served from the store (hit) or sent to the provider (miss)",
			},
			[]string{"result"},
		),
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_provider_fetches_total",
				Help: "Provider fetches by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fxrates_provider_fetch_duration_seconds",
				Help:    "Provider fetch latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		StoredPairs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxrates_stored_pairs",
				Help: "Number of pairs currently stored",
			},
		),
	}
}
