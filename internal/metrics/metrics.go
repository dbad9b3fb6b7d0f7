// Package metrics holds the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values shared by the lookup and verification counters.
const (
	ResultFound       = "found"
	ResultNotFound    = "not_found"
	ResultValid       = "valid"
	ResultInvalid     = "invalid"
	ResultUnavailable = "unavailable"
)

type Metrics struct {
	// Data
	PostingsFetched *prometheus.CounterVec
	FetchErrors     *prometheus.CounterVec

	// Postal
	PostalLookups *prometheus.CounterVec

	// Entitlement
	LicenseVerifications *prometheus.CounterVec
	GrantActivations     *prometheus.CounterVec
	GrantExpirations     prometheus.Counter

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// New registers every collector on reg. Passing nil creates a fresh registry,
// which keeps tests free of duplicate-registration panics.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.PostingsFetched = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_postings_fetched_total",
		Help: "Postings returned by the data source",
	}, []string{"platform"})

	m.FetchErrors = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_fetch_errors_total",
		Help: "Data source fetches that failed",
	}, []string{"platform"})

	m.PostalLookups = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_postal_lookups_total",
		Help: "Postal code lookups by outcome",
	}, []string{"result"})

	m.LicenseVerifications = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_license_verifications_total",
		Help: "License verification calls by outcome",
	}, []string{"result"})

	m.GrantActivations = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_grant_activations_total",
		Help: "Pro grants activated by source",
	}, []string{"source"})

	m.GrantExpirations = f.NewCounter(prometheus.CounterOpts{
		Name: "gigmaps_grant_expirations_total",
		Help: "Stored grants found expired and removed",
	})

	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmaps_http_requests_total",
		Help: "HTTP requests served by the engine",
	}, []string{"method", "route", "status"})

	m.HTTPDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gigmaps_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.HTTPInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "gigmaps_http_inflight_requests",
		Help: "HTTP requests currently being served",
	})

	return m
}

// Handler serves this registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
