// Package metrics provides Prometheus metrics for the meeple recommender.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Recommendation
	recommendRequests *prometheus.CounterVec
	recommendLatency  prometheus.Histogram
	recommendResults  prometheus.Histogram

	// Cache
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheCorrupt       prometheus.Counter
	snapshotCandidates prometheus.Gauge
	snapshotAgeSeconds prometheus.Gauge

	// Acquisition
	rebuildsStarted  prometheus.Counter
	rebuildsFailed   prometheus.Counter
	rebuildsShared   prometheus.Counter
	rebuildDuration  prometheus.Histogram
	listingPages     prometheus.Counter
	listingEntries   prometheus.Counter
	listingDuplicate prometheus.Counter
	detailFetches    prometheus.Counter
	detailErrors     *prometheus.CounterVec
	fetchLatency     *prometheus.HistogramVec

	// Queue and workers
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueueError prometheus.Counter
	workerActiveCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "meeple",
		subsystem:        "recommender",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.recommendRequests = m.counterVec("recommend_requests_total",
		"Recommendation requests by outcome", "outcome")
	m.recommendLatency = m.histogram("recommend_latency_milliseconds",
		"End-to-end recommendation latency in milliseconds", m.histogramBuckets)
	m.recommendResults = m.histogram("recommend_results",
		"Number of recommendations returned per request", []float64{0, 1, 2, 3, 4, 5})

	m.cacheHits = m.counter("cache_hits_total", "Requests served from a fresh snapshot")
	m.cacheMisses = m.counter("cache_misses_total", "Requests that found the snapshot absent or stale")
	m.cacheCorrupt = m.counter("cache_corrupt_total", "Snapshots that existed but could not be decoded")
	m.snapshotCandidates = m.gauge("snapshot_candidates", "Candidates in the last loaded or built snapshot")
	m.snapshotAgeSeconds = m.gauge("snapshot_age_seconds", "Age of the stored snapshot in seconds")

	m.rebuildsStarted = m.counter("rebuilds_total", "Snapshot rebuilds started")
	m.rebuildsFailed = m.counter("rebuilds_failed_total", "Snapshot rebuilds aborted by an error")
	m.rebuildsShared = m.counter("rebuilds_shared_total", "Callers that joined an in-flight rebuild")
	m.rebuildDuration = m.histogram("rebuild_duration_seconds", "Snapshot rebuild duration in seconds",
		[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400})
	m.listingPages = m.counter("listing_pages_total", "Listing pages fetched")
	m.listingEntries = m.counter("listing_entries_total", "Listing rows discovered")
	m.listingDuplicate = m.counter("listing_duplicates_total", "Listing rows dropped as duplicates")
	m.detailFetches = m.counter("detail_fetches_total", "Successful per-item detail fetches")
	m.detailErrors = m.counterVec("detail_errors_total", "Per-item detail failures by kind", "kind")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds",
		"Remote catalog request latency in milliseconds", m.histogramBuckets, "endpoint")

	m.queueSize = m.gauge("queue_size", "Enrichment jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Enrichment queue capacity")
	m.queueEnqueueError = m.counter("queue_enqueue_errors_total", "Enrichment jobs rejected by the queue")
	m.workerActiveCount = m.gauge("worker_active_count", "Enrichment workers currently running")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Recommendation Metrics Functions.

// RecordRecommendRequest counts a recommendation request by outcome
// (ok, invalid, error).
func RecordRecommendRequest(outcome string) {
	globalManager.recommendRequests.WithLabelValues(outcome).Inc()
}

// RecordRecommendLatency records recommendation latency in milliseconds.
func RecordRecommendLatency(latencyMs float64) {
	globalManager.recommendLatency.Observe(latencyMs)
}

// RecordRecommendResults records how many recommendations were returned.
func RecordRecommendResults(n int) {
	globalManager.recommendResults.Observe(float64(n))
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheCorrupt increments the corrupt snapshot counter.
func RecordCacheCorrupt() {
	globalManager.cacheCorrupt.Inc()
}

// UpdateSnapshotCandidates sets the candidate count of the current snapshot.
func UpdateSnapshotCandidates(count int) {
	globalManager.snapshotCandidates.Set(float64(count))
}

// UpdateSnapshotAge sets the stored snapshot age.
func UpdateSnapshotAge(age time.Duration) {
	globalManager.snapshotAgeSeconds.Set(age.Seconds())
}

// Acquisition Metrics Functions.

// RecordRebuildStarted increments the rebuild counter.
func RecordRebuildStarted() {
	globalManager.rebuildsStarted.Inc()
}

// RecordRebuildFailed increments the failed rebuild counter.
func RecordRebuildFailed() {
	globalManager.rebuildsFailed.Inc()
}

// RecordRebuildShared counts a caller that waited on another caller's rebuild.
func RecordRebuildShared() {
	globalManager.rebuildsShared.Inc()
}

// RecordRebuildDuration records how long a rebuild took.
func RecordRebuildDuration(d time.Duration) {
	globalManager.rebuildDuration.Observe(d.Seconds())
}

// RecordListingPage counts a fetched listing page and its rows.
func RecordListingPage(entries int) {
	globalManager.listingPages.Inc()
	globalManager.listingEntries.Add(float64(entries))
}

// RecordListingDuplicate counts a listing row dropped as a duplicate id.
func RecordListingDuplicate() {
	globalManager.listingDuplicate.Inc()
}

// RecordDetailFetched counts a successful detail fetch.
func RecordDetailFetched() {
	globalManager.detailFetches.Inc()
}

// RecordDetailError counts a failed detail fetch by error kind (fetch, parse).
func RecordDetailError(kind string) {
	globalManager.detailErrors.WithLabelValues(kind).Inc()
}

// RecordFetchLatency records remote request latency for an endpoint
// (listing, detail).
func RecordFetchLatency(endpoint string, latencyMs float64) {
	globalManager.fetchLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// Queue and Worker Metrics Functions.

// UpdateQueueSize sets the number of queued enrichment jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the enrichment queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the rejected job counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// AddWorkerActive adjusts the running worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
