// Package metrics defines the Prometheus collectors exported on /metrics.
//
// All recording methods are safe to call on a nil *Metrics so components can
// run without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hyperauth"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Token metrics
	TokensIssuedTotal   *prometheus.CounterVec
	TokenChecksTotal    *prometheus.CounterVec
	TokensRevokedTotal  *prometheus.CounterVec
	TokenRotationsTotal *prometheus.CounterVec

	// Flow metrics
	AuthEventsTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitRejectionsTotal prometheus.Counter

	// Housekeeping
	ReaperDeletedTotal *prometheus.CounterVec
	ReaperRunDuration  prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "Total number of tokens issued",
			},
			[]string{"purpose"},
		),
		TokenChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_verifications_total",
				Help:      "Total number of token verifications by outcome",
			},
			[]string{"purpose", "outcome"},
		),
		TokensRevokedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_revoked_total",
				Help:      "Total number of token records blacklisted",
			},
			[]string{"purpose"},
		),
		TokenRotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_rotations_total",
				Help:      "Total number of refresh token rotations by outcome",
			},
			[]string{"outcome"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Total number of authentication flow outcomes",
			},
			[]string{"event", "outcome"},
		),
		RateLimitRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Total number of requests rejected by the failure rate limiter",
			},
		),
		ReaperDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reaper_deleted_rows_total",
				Help:      "Total number of rows removed by housekeeping",
			},
			[]string{"table"},
		),
		ReaperRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reaper_run_duration_seconds",
				Help:      "Housekeeping run duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30},
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TokensIssuedTotal,
		m.TokenChecksTotal,
		m.TokensRevokedTotal,
		m.TokenRotationsTotal,
		m.AuthEventsTotal,
		m.RateLimitRejectionsTotal,
		m.ReaperDeletedTotal,
		m.ReaperRunDuration,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TokenIssued counts a minted token.
func (m *Metrics) TokenIssued(purpose string) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.WithLabelValues(purpose).Inc()
}

// TokenChecked counts a verification outcome such as "ok", "expired" or "revoked".
func (m *Metrics) TokenChecked(purpose, outcome string) {
	if m == nil {
		return
	}
	m.TokenChecksTotal.WithLabelValues(purpose, outcome).Inc()
}

// TokenRevoked counts a record that moved to blacklisted.
func (m *Metrics) TokenRevoked(purpose string) {
	if m == nil {
		return
	}
	m.TokensRevokedTotal.WithLabelValues(purpose).Inc()
}

// TokenRotated counts a refresh rotation attempt.
func (m *Metrics) TokenRotated(outcome string) {
	if m == nil {
		return
	}
	m.TokenRotationsTotal.WithLabelValues(outcome).Inc()
}

// AuthEvent counts the outcome of an authentication flow.
func (m *Metrics) AuthEvent(event string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejectionsTotal.Inc()
}

// ReaperRun records one housekeeping pass.
func (m *Metrics) ReaperRun(deleted map[string]int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	for table, n := range deleted {
		m.ReaperDeletedTotal.WithLabelValues(table).Add(float64(n))
	}
	m.ReaperRunDuration.Observe(elapsed.Seconds())
}
