// Package metrics provides Prometheus metrics for the SOE service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the SOE service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	scoresComputed   prometheus.Counter
	scoringLatency   prometheus.Histogram
	lastOverallScore *prometheus.GaugeVec
	categoryScore    *prometheus.GaugeVec

	// Persistence
	snapshotsSaved   prometheus.Counter
	storageErrors    *prometheus.CounterVec
	storageFallbacks prometheus.Counter
	storageLatency   *prometheus.HistogramVec

	// AI narrative
	aiRequests        *prometheus.CounterVec
	aiLatency         *prometheus.HistogramVec
	analysisRecords   *prometheus.CounterVec
	analysisDuplicate prometheus.Counter

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueue            prometheus.Counter
	queueDequeue            prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ingestion, alerts, live updates, config
	ingestions      *prometheus.CounterVec
	alertsFired     *prometheus.CounterVec
	webhookFailures prometheus.Counter
	wsClients       prometheus.Gauge
	weightsReloads  *prometheus.CounterVec
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
		namespace:        "soe",
		subsystem:        "analyzer",
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.scoresComputed = m.counter("scores_computed_total", "Total number of SOE scores computed")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Histogram of scoring latency in milliseconds")
	m.lastOverallScore = m.gaugeVec("overall_score", "Overall SOE score of the latest snapshot per system name", "name")
	m.categoryScore = m.gaugeVec("category_score", "Category score of the latest snapshot per system name", "name", "category")

	m.snapshotsSaved = m.counter("snapshots_saved_total", "Total number of snapshots appended to history")
	m.storageErrors = m.counterVec("storage_errors_total", "Storage failures by operation", "operation")
	m.storageFallbacks = m.counter("storage_fallbacks_total", "Times history fell back to the built-in snapshot set")
	m.storageLatency = m.histogramVec("storage_latency_milliseconds", "Storage operation latency in milliseconds", "operation")

	m.aiRequests = m.counterVec("ai_requests_total", "Generative AI requests by provider and outcome", "provider", "outcome")
	m.aiLatency = m.histogramVec("ai_latency_milliseconds", "Generative AI request latency in milliseconds", "provider")
	m.analysisRecords = m.counterVec("analysis_records_total", "Completed analyses by status", "status")
	m.analysisDuplicate = m.counter("analysis_duplicate_total", "Analysis requests suppressed as duplicates")

	m.queueSize = m.gauge("queue_size", "Current number of queued analysis jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued analysis jobs")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Analysis jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Analysis jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Analysis jobs rejected by backpressure")
	m.workerCount = m.gauge("worker_count", "Number of analysis workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Analysis job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Analysis jobs that did not produce a ready analysis")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.ingestions = m.counterVec("ingestions_total", "Metric records ingested by source format and outcome", "format", "outcome")
	m.alertsFired = m.counterVec("alerts_fired_total", "Alerts fired by rule and severity", "rule", "severity")
	m.webhookFailures = m.counter("webhook_failures_total", "Alert webhook deliveries that failed")
	m.wsClients = m.gauge("websocket_clients", "Connected dashboard websocket clients")
	m.weightsReloads = m.counterVec("weights_reloads_total", "Weight configuration reloads by outcome", "outcome")
}

// RecordScoreComputed records a computed score and its latency.
func RecordScoreComputed(latencyMs float64) {
	globalManager.scoresComputed.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// UpdateSnapshotScores publishes the latest scores of a named system.
func UpdateSnapshotScores(name string, overall float64, categories map[string]float64) {
	globalManager.lastOverallScore.WithLabelValues(name).Set(overall)
	for category, v := range categories {
		globalManager.categoryScore.WithLabelValues(name, category).Set(v)
	}
}

// RecordSnapshotSaved increments the saved snapshot counter.
func RecordSnapshotSaved() {
	globalManager.snapshotsSaved.Inc()
}

// RecordStorageError counts a failed storage operation.
func RecordStorageError(operation string) {
	globalManager.storageErrors.WithLabelValues(operation).Inc()
}

// RecordStorageFallback counts a read served from the fallback set.
func RecordStorageFallback() {
	globalManager.storageFallbacks.Inc()
}

// RecordStorageLatency observes the latency of a storage operation.
func RecordStorageLatency(operation string, latencyMs float64) {
	globalManager.storageLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordAIRequest records one generative AI call.
func RecordAIRequest(provider, outcome string, latencyMs float64) {
	globalManager.aiRequests.WithLabelValues(provider, outcome).Inc()
	globalManager.aiLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordAnalysis counts a completed analysis by status.
func RecordAnalysis(status string) {
	globalManager.analysisRecords.WithLabelValues(status).Inc()
}

// RecordAnalysisDuplicate counts a suppressed duplicate analysis request.
func RecordAnalysisDuplicate() {
	globalManager.analysisDuplicate.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
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

// RecordIngestion counts an ingestion attempt.
func RecordIngestion(format, outcome string) {
	globalManager.ingestions.WithLabelValues(format, outcome).Inc()
}

// RecordAlertFired counts a fired alert.
func RecordAlertFired(rule, severity string) {
	globalManager.alertsFired.WithLabelValues(rule, severity).Inc()
}

// RecordWebhookFailure counts a failed webhook delivery.
func RecordWebhookFailure() {
	globalManager.webhookFailures.Inc()
}

// UpdateWebsocketClients sets the number of connected websocket clients.
func UpdateWebsocketClients(n int) {
	globalManager.wsClients.Set(float64(n))
}

// RecordWeightsReload counts a weights reload attempt.
func RecordWeightsReload(outcome string) {
	globalManager.weightsReloads.WithLabelValues(outcome).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
