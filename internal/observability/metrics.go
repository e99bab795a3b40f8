package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation core.
type Metrics struct {
	ReportsSubmitted prometheus.Counter
	VotesCast        *prometheus.CounterVec // labels: kind={up,down}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,not_found,error}
	GeocodeCache    *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled  prometheus.Gauge

	// Hazard aggregation metrics.
	HazardFetches       *prometheus.CounterVec   // labels: source, outcome={success,unreachable,timeout,malformed_payload}
	HazardEventsFetched *prometheus.CounterVec   // labels: source
	HazardFetchDuration *prometheus.HistogramVec // labels: source

	ComposeDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsSubmitted,
		m.VotesCast,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
		m.GeocodeEnabled,
		m.HazardFetches,
		m.HazardEventsFetched,
		m.HazardFetchDuration,
		m.ComposeDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "reports_submitted_total",
			Help:      "Total vibe reports accepted by the store.",
		}),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "votes_cast_total",
			Help:      "Total votes applied to reports, by kind.",
		}, []string{"kind"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vibe_check",
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vibe_check",
			Name:      "geocode_enabled",
			Help:      "1 when the external geocoding provider is configured, 0 otherwise.",
		}),
		HazardFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "hazard_fetches_total",
			Help:      "Hazard feed fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		HazardEventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe_check",
			Name:      "hazard_events_fetched_total",
			Help:      "Normalized hazard events returned, by source.",
		}, []string{"source"}),
		HazardFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vibe_check",
			Name:      "hazard_fetch_duration_seconds",
			Help:      "Hazard feed fetch duration in seconds, by source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		ComposeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vibe_check",
			Name:      "map_compose_duration_seconds",
			Help:      "Duration of one map layer composition.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}
