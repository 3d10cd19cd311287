package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation of the results API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	rowsSaved       prometheus.Counter
	chunkDuration   *prometheus.HistogramVec
	lockTransitions *prometheus.CounterVec
	warmups         *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	reportCards     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		rowsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "results_score_rows_saved_total",
			Help: "Score rows committed by batch saves",
		}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "results_score_chunk_duration_seconds",
			Help:    "Duration of one score chunk transaction",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
		lockTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_lock_transitions_total",
			Help: "Result lock transitions by action",
		}, []string{"action"}),
		warmups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_cache_warmups_total",
			Help: "Post-write cache warm-ups by outcome",
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_store_errors_total",
			Help: "Store failures by operation",
		}, []string{"operation"}),
		reportCards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "results_report_cards_built_total",
			Help: "Report cards composed",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency.(prometheus.Collector), m.cacheWrite.(prometheus.Collector),
		m.cacheHitRatio, m.cacheLookups, m.rowsSaved, m.chunkDuration, m.lockTransitions, m.warmups, m.storeErrors,
		m.reportCards, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveChunk records one chunk transaction.
func (m *MetricsService) ObserveChunk(duration time.Duration, committed bool) {
	if m == nil {
		return
	}
	outcome := "committed"
	if !committed {
		outcome = "rolled_back"
	}
	m.chunkDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// AddRowsSaved counts committed score rows.
func (m *MetricsService) AddRowsSaved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsSaved.Add(float64(n))
}

// RecordLockTransition counts a lock mutation.
func (m *MetricsService) RecordLockTransition(action string) {
	if m == nil {
		return
	}
	m.lockTransitions.WithLabelValues(action).Inc()
}

// RecordWarmup counts a warm-up outcome: scheduled, dropped, done or failed.
func (m *MetricsService) RecordWarmup(outcome string) {
	if m == nil {
		return
	}
	m.warmups.WithLabelValues(outcome).Inc()
}

// RecordStoreError counts a store failure of operation.
func (m *MetricsService) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

// RecordReportCard counts a composed report card.
func (m *MetricsService) RecordReportCard() {
	if m == nil {
		return
	}
	m.reportCards.Inc()
}
