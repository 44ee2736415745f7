// Package metrics provides Prometheus metrics for the analysis pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Retrieval metrics
	FetchDuration   *prometheus.HistogramVec
	SeriesFetched   *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	SyntheticSeries *prometheus.CounterVec

	// Pipeline metrics
	AnalysisRuns     *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	AlertsRaised     *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fxcorr"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of market data retrieval per instrument",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		SeriesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "series_total",
			Help:      "Total number of price series returned by provenance",
		}, []string{"provenance"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),
		SyntheticSeries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "synthetic_series_total",
			Help:      "Total number of synthesized series by reason",
		}, []string{"reason"}),

		AnalysisRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of a full analysis run",
			Buckets:   prometheus.DefBuckets,
		}),
		AlertsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "raised_total",
			Help:      "Total number of threshold crossings by direction",
		}, []string{"direction"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notifications_total",
			Help:      "Total number of notification attempts by status",
		}, []string{"status"}),
	}
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordSeries(provenance string) {
	if m == nil {
		return
	}
	m.SeriesFetched.WithLabelValues(provenance).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSynthetic(reason string) {
	if m == nil {
		return
	}
	m.SyntheticSeries.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisRuns.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordAlert(direction string) {
	if m == nil {
		return
	}
	m.AlertsRaised.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	status := "failed"
	if delivered {
		status = "delivered"
	}
	m.Notifications.WithLabelValues(status).Inc()
}
