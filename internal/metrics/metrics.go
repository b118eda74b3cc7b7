// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors exported on /metrics.
// All recording methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "research_connector"

// Metrics is a private registry plus the application's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	searchDuration    prometheus.Histogram
	searchLogFailures prometheus.Counter
	embeddingRequests *prometheus.CounterVec
	ingestRows        *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors and registers
// the application metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end semantic search latency, embedding included.",
			Buckets:   prometheus.DefBuckets,
		}),
		searchLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_log_failures_total",
			Help:      "Search analytics writes that failed and were discarded.",
		}),
		embeddingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ingestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "CSV rows processed by batch commands, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.searchDuration,
		m.searchLogFailures,
		m.embeddingRequests,
		m.ingestRows,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveSearch records the latency of one search.
func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

// SearchLogFailed counts a discarded analytics write.
func (m *Metrics) SearchLogFailed() {
	if m == nil {
		return
	}
	m.searchLogFailures.Inc()
}

// EmbeddingRequest counts a provider call; outcome is "ok" or "error".
func (m *Metrics) EmbeddingRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.embeddingRequests.WithLabelValues(provider, outcome).Inc()
}

// IngestRow counts a processed CSV row, e.g. "imported", "skipped",
// "embedded", "blank" or "failed".
func (m *Metrics) IngestRow(outcome string) {
	if m == nil {
		return
	}
	m.ingestRows.WithLabelValues(outcome).Inc()
}
