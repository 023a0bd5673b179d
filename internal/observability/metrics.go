// Package observability defines the Prometheus instrumentation for the
// SST pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the fetch,
// climatology, and rendering paths.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec // labels: outcome={success,no_data,error}
	FetchDuration prometheus.Histogram

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	ClimatologyDuration  prometheus.Histogram
	ClimatologyYearsUsed prometheus.Histogram

	RendersTotal *prometheus.CounterVec // labels: mode={absolute,anomaly}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.CacheLookups,
		m.ClimatologyDuration,
		m.ClimatologyYearsUsed,
		m.RendersTotal,
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
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sst_api",
			Name:      "fetch_total",
			Help:      "Daily grid fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sst_api",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single daily grid fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sst_api",
			Name:      "grid_cache_lookups_total",
			Help:      "Grid cache lookups by result.",
		}, []string{"result"}),
		ClimatologyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sst_api",
			Name:      "climatology_duration_seconds",
			Help:      "Duration of a full climatology computation.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		ClimatologyYearsUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sst_api",
			Name:      "climatology_years_used",
			Help:      "Number of reference years contributing to a climatology mean.",
			Buckets:   []float64{0, 5, 10, 15, 20, 25, 28, 29, 30},
		}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sst_api",
			Name:      "map_renders_total",
			Help:      "Rendered map images by mode.",
		}, []string{"mode"}),
	}
}
