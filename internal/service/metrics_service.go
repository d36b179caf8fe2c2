package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	submissions     *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	emailSuccessCount    uint64
	emailFailureCount    uint64
	submissionCounts     sync.Map
}

// MetricsSnapshot summarises process counters for the admin dashboard.
type MetricsSnapshot struct {
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	EmailsSent               uint64            `json:"emailsSent"`
	EmailsFailed             uint64            `json:"emailsFailed"`
	Submissions              map[string]uint64 `json:"submissions"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}

// Attendance submission outcomes.
const (
	SubmissionAccepted  = "accepted"
	SubmissionExpired   = "expired"
	SubmissionDuplicate = "duplicate"
)

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_submissions_total",
		Help: "Attendance submissions by outcome",
	}, []string{"result"})

	emailsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Outgoing emails by kind and outcome",
	}, []string{"kind", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, submissions, emailsSent, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		submissions:     submissions,
		emailsSent:      emailsSent,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSubmission counts an attendance submission outcome.
func (m *MetricsService) RecordSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
	counter, _ := m.submissionCounts.LoadOrStore(result, new(uint64))
	atomic.AddUint64(counter.(*uint64), 1)
}

// RecordEmails counts delivered and failed emails for a kind of message.
func (m *MetricsService) RecordEmails(kind string, succeeded, failed int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.emailsSent.WithLabelValues(kind, "success").Add(float64(succeeded))
		atomic.AddUint64(&m.emailSuccessCount, uint64(succeeded))
	}
	if failed > 0 {
		m.emailsSent.WithLabelValues(kind, "failure").Add(float64(failed))
		atomic.AddUint64(&m.emailFailureCount, uint64(failed))
	}
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	submissions := make(map[string]uint64)
	m.submissionCounts.Range(func(key, value interface{}) bool {
		submissions[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	return MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		EmailsSent:               atomic.LoadUint64(&m.emailSuccessCount),
		EmailsFailed:             atomic.LoadUint64(&m.emailFailureCount),
		Submissions:              submissions,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
