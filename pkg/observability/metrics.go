package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzDeniedTotal    *prometheus.CounterVec

	// Audit metrics
	AuditEventsTotal      *prometheus.CounterVec
	AuditWriteFailures    *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Database pool metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Rate limiting
	RateLimitDropsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics on the registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "openbay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "openbay_http_requests_in_flight",
				Help: "HTTP requests currently being served",
			},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_authz_decisions_total",
				Help: "Authorization decisions by kind, action, and outcome",
			},
			[]string{"kind", "action", "allowed"},
		),
		AuthzDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_authz_denied_total",
				Help: "Denied authorization decisions by reason code",
			},
			[]string{"kind", "action", "reason"},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_audit_events_total",
				Help: "Audit events recorded, by sink and status",
			},
			[]string{"sink", "status"},
		),
		AuditWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_audit_write_failures_total",
				Help: "Audit events that failed to persist; each one is an escalation",
			},
			[]string{"sink"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_storage_operations_total",
				Help: "Storage operations by entity, operation, and status",
			},
			[]string{"entity", "operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "openbay_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "openbay_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "openbay_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		RateLimitDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openbay_ratelimit_drops_total",
				Help: "Requests rejected by rate limiting",
			},
			[]string{"limiter"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AuthzDecisionsTotal,
		m.AuthzDeniedTotal,
		m.AuditEventsTotal,
		m.AuditWriteFailures,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RateLimitDropsTotal,
	)

	return m
}

// ObserveDecision records an authorization decision outcome. It satisfies
// the engine's DecisionObserver interface.
func (m *Metrics) ObserveDecision(kind, action, reason string, allowed bool) {
	m.AuthzDecisionsTotal.WithLabelValues(kind, action, strconv.FormatBool(allowed)).Inc()
	if !allowed {
		m.AuthzDeniedTotal.WithLabelValues(kind, action, reason).Inc()
	}
}

// ObserveAuditEvent records an audit sink write
func (m *Metrics) ObserveAuditEvent(sink, status string, failed bool) {
	m.AuditEventsTotal.WithLabelValues(sink, status).Inc()
	if failed {
		m.AuditWriteFailures.WithLabelValues(sink).Inc()
	}
}

// ObserveRateLimitDrop records a request rejected by a rate limiter
func (m *Metrics) ObserveRateLimitDrop(limiter string) {
	m.RateLimitDropsTotal.WithLabelValues(limiter).Inc()
}

// ObserveStorageOperation records a storage call
func (m *Metrics) ObserveStorageOperation(entity, operation, status string, duration time.Duration) {
	m.StorageOperationsTotal.WithLabelValues(entity, operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// CollectDBStats copies connection pool gauges from the database handle
func (m *Metrics) CollectDBStats(db *sql.DB) {
	if db == nil {
		return
	}
	stats := db.Stats()
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// Handler returns the Prometheus scrape handler for the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metrics labels
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments a handler with request count, duration, and
// in-flight gauges. The path label uses the route template provided by the
// router, not the raw URL, to keep cardinality bounded.
func (m *Metrics) HTTPMiddleware(routeTemplate func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if routeTemplate != nil {
				if t := routeTemplate(r); t != "" {
					path = t
				}
			}

			m.HTTPRequestsInFlight.Inc()
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			m.HTTPRequestsInFlight.Dec()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		})
	}
}
