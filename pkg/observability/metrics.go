package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid; every Record method is a no-op on it.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginAttemptsTotal    *prometheus.CounterVec
	TokensIssuedTotal     *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	LogoutsTotal          prometheus.Counter

	// Revocation registry metrics
	RevokedTokens      prometheus.Gauge
	SweepRemovedTotal  prometheus.Counter
	SweepErrorsTotal   prometheus.Counter
	SweepDuration      prometheus.Histogram

	// Principal cache metrics
	PrincipalCacheHitsTotal   prometheus.Counter
	PrincipalCacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "questlog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_auth_login_attempts_total",
				Help: "Password login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_auth_tokens_issued_total",
				Help: "Access tokens issued by source",
			},
			[]string{"source"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_auth_token_validations_total",
				Help: "Bearer token validations by result",
			},
			[]string{"result"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questlog_auth_logouts_total",
				Help: "Total number of logout calls",
			},
		),

		RevokedTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "questlog_auth_revoked_tokens",
				Help: "Number of tokens currently tracked by the revocation registry",
			},
		),
		SweepRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questlog_auth_sweep_removed_total",
				Help: "Revocation entries removed by the periodic sweep",
			},
		),
		SweepErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questlog_auth_sweep_errors_total",
				Help: "Failed revocation sweeps",
			},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "questlog_auth_sweep_duration_seconds",
				Help:    "Revocation sweep duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		PrincipalCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questlog_principal_cache_hits_total",
				Help: "Principal lookups served from the in-process cache",
			},
		),
		PrincipalCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "questlog_principal_cache_misses_total",
				Help: "Principal lookups that went to the user store",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.TokensIssuedTotal,
		m.TokenValidationsTotal,
		m.LogoutsTotal,
		m.RevokedTokens,
		m.SweepRemovedTotal,
		m.SweepErrorsTotal,
		m.SweepDuration,
		m.PrincipalCacheHitsTotal,
		m.PrincipalCacheMissesTotal,
	)

	return m
}

// RecordLogin counts a password login attempt
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenIssued counts an issued access token
func (m *Metrics) RecordTokenIssued(source string) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.WithLabelValues(source).Inc()
}

// RecordValidation counts a token validation result
func (m *Metrics) RecordValidation(result string) {
	if m == nil {
		return
	}
	m.TokenValidationsTotal.WithLabelValues(result).Inc()
}

// RecordLogout counts a logout call
func (m *Metrics) RecordLogout() {
	if m == nil {
		return
	}
	m.LogoutsTotal.Inc()
}

// RecordSweep records the outcome of one revocation sweep
func (m *Metrics) RecordSweep(removed, remaining int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(duration.Seconds())
	if err != nil {
		m.SweepErrorsTotal.Inc()
		return
	}
	m.SweepRemovedTotal.Add(float64(removed))
	m.RevokedTokens.Set(float64(remaining))
}

// RecordPrincipalCache counts a principal cache hit or miss
func (m *Metrics) RecordPrincipalCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.PrincipalCacheHitsTotal.Inc()
		return
	}
	m.PrincipalCacheMissesTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled with the mux route template so path parameters do not
// explode label cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// MetricsHandler returns the /metrics handler for the given registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
