// Package metrics provides Prometheus metrics for the HTTP server and the upstream fetches.
//
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain metrics:
//   - vaccine_fetch_total: upstream fetches by outcome (success, error)
//   - vaccine_fetch_discarded_total: responses dropped because a newer fetch superseded them
//   - vaccine_fetch_duration_seconds: upstream latency
//   - vaccine_views_active: live views in the registry
//   - vaccine_data_quality_issues_total: malformed record findings by kind
//
// All metrics are registered with the Prometheus default registry on init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (clients seen since last cleanup)",
		},
	)

	VaccineFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccine_fetch_total",
			Help: "Upstream vaccine profile fetches by outcome",
		},
		[]string{"outcome"},
	)

	VaccineFetchDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaccine_fetch_discarded_total",
			Help: "Fetch responses ignored because the view moved on to a newer request",
		},
	)

	VaccineFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaccine_fetch_duration_seconds",
			Help:    "Upstream vaccine profile fetch latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	VaccineViewsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaccine_views_active",
			Help: "Number of vaccination book views held in memory",
		},
	)

	VaccineDataQualityIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaccine_data_quality_issues_total",
			Help: "Malformed or inconsistent vaccine profile records seen",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(VaccineFetchTotal)
	prometheus.MustRegister(VaccineFetchDiscarded)
	prometheus.MustRegister(VaccineFetchDuration)
	prometheus.MustRegister(VaccineViewsActive)
	prometheus.MustRegister(VaccineDataQualityIssues)
}
