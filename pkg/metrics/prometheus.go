// Package metrics provides Prometheus metrics for the ladder ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ranking
	matchesProcessed    prometheus.Counter
	matchesDuplicate    prometheus.Counter
	matchesRejected     prometheus.Counter
	processLatency      prometheus.Histogram
	playerUpdates       *prometheus.CounterVec
	playerUpdateErrors  *prometheus.CounterVec
	bonusPointsAwarded  prometheus.Counter
	seasonResets        prometheus.Counter
	leaderboardRequests *prometheus.CounterVec

	// Store
	recordsTotal      prometheus.Gauge
	recordsPerSeason  *prometheus.GaugeVec
	seasonsTotal      prometheus.Gauge
	storeApplyLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
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
		namespace:        "ladder",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.matchesProcessed = m.counter("matches_processed_total", "Finalized matches applied to the rankings")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Finalize events skipped because the match was already applied")
	m.matchesRejected = m.counter("matches_rejected_total", "Match events rejected because they were not finalized")
	m.processLatency = m.histogram("match_process_latency_milliseconds", "Time to apply one finalized match in milliseconds")
	m.playerUpdates = m.counterVec("player_updates_total", "Per-player ranking updates by step", "step")
	m.playerUpdateErrors = m.counterVec("player_update_errors_total", "Failed per-player ranking updates by step and reason", "step", "reason")
	m.bonusPointsAwarded = m.counter("bonus_points_awarded_total", "Sum of bonus points added to records")
	m.seasonResets = m.counter("season_resets_total", "Administrative season resets")
	m.leaderboardRequests = m.counterVec("leaderboard_queries_total", "Leaderboard read operations by kind", "kind")

	m.recordsTotal = m.gauge("records_total", "Ranking records across all seasons")
	m.recordsPerSeason = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_per_season",
		Help:      "Ranking records per season",
	}, []string{"season"})
	m.seasonsTotal = m.gauge("seasons_total", "Seasons holding at least one record")
	m.storeApplyLatency = m.histogram("store_apply_latency_milliseconds", "Store write latency in milliseconds")
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Store read latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current size of the match queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum match queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Match events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Match events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Match events refused by the queue")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a match")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Matches a worker failed to process")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
}

// RecordMatchProcessed increments the processed matches counter.
func RecordMatchProcessed() {
	globalManager.matchesProcessed.Inc()
}

// RecordMatchDuplicate increments the duplicate finalize counter.
func RecordMatchDuplicate() {
	globalManager.matchesDuplicate.Inc()
}

// RecordMatchRejected increments the not-finalized counter.
func RecordMatchRejected() {
	globalManager.matchesRejected.Inc()
}

// RecordProcessLatency records how long one match took to apply.
func RecordProcessLatency(latencyMs float64) {
	globalManager.processLatency.Observe(latencyMs)
}

// RecordPlayerUpdate counts a successful per-player update.
func RecordPlayerUpdate(step string) {
	globalManager.playerUpdates.WithLabelValues(step).Inc()
}

// RecordPlayerUpdateError counts a failed per-player update.
func RecordPlayerUpdateError(step, reason string) {
	globalManager.playerUpdateErrors.WithLabelValues(step, reason).Inc()
}

// RecordBonusPoints adds awarded bonus points. Non-positive values are ignored.
func RecordBonusPoints(points int) {
	if points > 0 {
		globalManager.bonusPointsAwarded.Add(float64(points))
	}
}

// RecordSeasonReset counts a season reset and drops the season's record gauge.
func RecordSeasonReset(season string) {
	globalManager.seasonResets.Inc()
	DeleteRecordsPerSeason(season)
}

// RecordLeaderboardQuery counts a read operation of the given kind.
func RecordLeaderboardQuery(kind string) {
	globalManager.leaderboardRequests.WithLabelValues(kind).Inc()
}

// UpdateRecordsTotal sets the number of records across all seasons.
func UpdateRecordsTotal(count int) {
	globalManager.recordsTotal.Set(float64(count))
}

// UpdateRecordsPerSeason sets the record count of one season.
func UpdateRecordsPerSeason(season string, count int) {
	globalManager.recordsPerSeason.WithLabelValues(season).Set(float64(count))
}

// DeleteRecordsPerSeason removes the record gauge of a season that no longer exists.
func DeleteRecordsPerSeason(season string) {
	globalManager.recordsPerSeason.DeleteLabelValues(season)
}

// UpdateSeasonsTotal sets the number of non-empty seasons.
func UpdateSeasonsTotal(count int) {
	globalManager.seasonsTotal.Set(float64(count))
}

// RecordStoreApplyLatency records store write latency.
func RecordStoreApplyLatency(latencyMs float64) {
	globalManager.storeApplyLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store read latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
