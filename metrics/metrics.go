package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scorer label values
const (
	ScorerSearch     = "search"
	ScorerExperience = "experience"
)

// Registry holds the service's Prometheus metrics
type Registry struct {
	registry *prometheus.Registry

	// Scoring engine metrics
	ScoringRuns  *prometheus.CounterVec
	ScoreResults *prometheus.HistogramVec

	// Upstream collaborator metrics
	UpstreamDuration *prometheus.HistogramVec

	// Report pipeline metrics
	ReportsGenerated *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ScoringRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seo_scoring_runs_total",
				Help: "Total number of scoring runs by scorer",
			},
			[]string{"scorer"},
		),

		ScoreResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seo_scoring_total_score",
				Help:    "Distribution of computed scores by scorer",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"scorer"},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seo_upstream_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"upstream", "result"},
		),

		ReportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seo_reports_generated_total",
				Help: "Total number of report generations by result",
			},
			[]string{"result"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seo_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status class",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	r.registry.MustRegister(
		r.ScoringRuns,
		r.ScoreResults,
		r.UpstreamDuration,
		r.ReportsGenerated,
		r.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveScore records one scoring run. A nil registry is a no-op.
func (r *Registry) ObserveScore(scorer string, score int) {
	if r == nil {
		return
	}
	r.ScoringRuns.WithLabelValues(scorer).Inc()
	r.ScoreResults.WithLabelValues(scorer).Observe(float64(score))
}

// ObserveUpstream records an upstream fetch started at start.
func (r *Registry) ObserveUpstream(upstream string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.UpstreamDuration.WithLabelValues(upstream, result).Observe(time.Since(start).Seconds())
}

// ObserveReport counts a report generation outcome.
func (r *Registry) ObserveReport(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.ReportsGenerated.WithLabelValues("error").Inc()
		return
	}
	r.ReportsGenerated.WithLabelValues("success").Inc()
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
