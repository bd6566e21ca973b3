package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generation metrics
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartpath_generation_requests_total",
		Help: "Total number of AI generation requests",
	}, []string{"kind", "status"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smartpath_generation_duration_seconds",
		Help:    "Duration of AI generation requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "status"})

	// Auth metrics
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartpath_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"status"})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartpath_sessions_expired_total",
		Help: "Total number of sessions expired by idle timeout",
	})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartpath_cache_hits_total",
		Help: "Total number of answer cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartpath_cache_misses_total",
		Help: "Total number of answer cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartpath_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"action"})

	// Test metrics
	testsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartpath_tests_completed_total",
		Help: "Total number of completed tests",
	}, []string{"subject"})

	// Active sessions gauge
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartpath_active_sessions",
		Help: "Number of active sessions",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordGeneration records an AI generation request
func (m *Metrics) RecordGeneration(kind, status string, duration time.Duration) {
	generationRequests.WithLabelValues(kind, status).Inc()
	generationDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordLoginAttempt records a login attempt
func (m *Metrics) RecordLoginAttempt(status string) {
	loginAttempts.WithLabelValues(status).Inc()
}

// RecordSessionExpired records a session expiry
func (m *Metrics) RecordSessionExpired() {
	sessionsExpired.Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(action string) {
	rateLimitExceeded.WithLabelValues(action).Inc()
}

// RecordTestCompleted records a completed test
func (m *Metrics) RecordTestCompleted(subject string) {
	testsCompleted.WithLabelValues(subject).Inc()
}

// SetActiveSessions sets the number of active sessions
func (m *Metrics) SetActiveSessions(count float64) {
	activeSessions.Set(count)
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
