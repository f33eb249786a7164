package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bot metrics
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_bot_messages_received_total",
		Help: "Total number of Telegram messages received",
	}, []string{"kind"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyspark_active_sessions",
		Help: "Number of live conversation sessions",
	})

	// Submission metrics
	submissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studyspark_submission_duration_seconds",
		Help:    "Duration of question submissions, chat call included",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_submissions_total",
		Help: "Total number of accepted question submissions",
	}, []string{"status"})

	// Collaborator metrics
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_uploads_total",
		Help: "Total number of PDF uploads",
	}, []string{"status"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_exports_total",
		Help: "Total number of conversation exports",
	}, []string{"status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyspark_answer_cache_hits_total",
		Help: "Total number of answer cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyspark_answer_cache_misses_total",
		Help: "Total number of answer cache misses",
	})

	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"surface"})

	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyspark_http_requests_total",
		Help: "Total number of API requests",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studyspark_http_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received bot update
func (m *Metrics) RecordMessageReceived(kind string) {
	messagesReceived.WithLabelValues(kind).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordSubmission records the outcome of an accepted question
func (m *Metrics) RecordSubmission(status string, duration time.Duration) {
	submissionDuration.WithLabelValues(status).Observe(duration.Seconds())
	submissionsTotal.WithLabelValues(status).Inc()
}

// RecordUpload records one uploaded file
func (m *Metrics) RecordUpload(status string) {
	uploadsTotal.WithLabelValues(status).Inc()
}

// RecordExport records one export
func (m *Metrics) RecordExport(status string) {
	exportsTotal.WithLabelValues(status).Inc()
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
func (m *Metrics) RecordRateLimitExceeded(surface string) {
	rateLimitExceeded.WithLabelValues(surface).Inc()
}

// SetActiveSessions sets the number of live sessions
func (m *Metrics) SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument is a mux middleware recording request counts and latency per
// route template
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(started).Seconds())
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

// Handler exposes the prometheus registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
