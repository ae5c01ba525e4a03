package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "darksky"

// Metrics holds the Prometheus collectors for fetching and checking.
type Metrics struct {
	FetchTotal     *prometheus.CounterVec // labels: outcome={success,unavailable,cached}
	FetchAttempts  prometheus.Counter
	FetchDuration  prometheus.Histogram
	MalformedCells prometheus.Counter

	ProfileChecks *prometheus.CounterVec // labels: outcome={matched,no_match,unavailable,not_found}
	ScheduledRuns prometheus.Counter
	Notifications *prometheus.CounterVec // labels: outcome={sent,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchTotal,
		m.FetchAttempts,
		m.FetchDuration,
		m.MalformedCells,
		m.ProfileChecks,
		m.ScheduledRuns,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_fetch_total",
			Help:      "Forecast page fetches by outcome.",
		}, []string{"outcome"}),
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_fetch_attempts_total",
			Help:      "Individual HTTP attempts made while fetching forecast pages.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_fetch_duration_seconds",
			Help:      "Duration of a forecast fetch including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MalformedCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cells_malformed_total",
			Help:      "Forecast cells replaced by their worst-case value.",
		}),
		ProfileChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_checks_total",
			Help:      "Alert profile checks by outcome.",
		}, []string{"outcome"}),
		ScheduledRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Completed scheduled check runs.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alert notifications by outcome.",
		}, []string{"outcome"}),
	}
}
