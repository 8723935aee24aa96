// Package metrics provides Prometheus metrics for the formcheck service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation results used as the "result" label.
const (
	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
	ResultFailed    = "failed"
)

// Manager manages all Prometheus metrics for the formcheck service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core Business Metrics
	attemptsSubmitted prometheus.Counter
	attemptsDuplicate prometheus.Counter
	evaluations       *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec
	findings          *prometheus.CounterVec
	skippedFrames     prometheus.Counter

	// Operational Health Metrics
	queueSize      prometheus.Gauge
	workerCount    prometheus.Gauge
	storedOutcomes prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository Metrics
	repositoryWriteLatency prometheus.Histogram
	repositoryReadLatency  prometheus.Histogram

	// Queue Metrics
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueLatency     prometheus.Histogram

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "formcheck",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.attemptsSubmitted = auto.NewCounter(m.counter("attempts_submitted_total",
		"Total number of attempts accepted for asynchronous evaluation"))
	m.attemptsDuplicate = auto.NewCounter(m.counter("attempts_duplicate_total",
		"Total number of resubmitted attempt IDs"))
	m.evaluations = auto.NewCounterVec(m.counter("evaluations_total",
		"Total number of evaluations by exercise and result"),
		[]string{"exercise", "result"})
	m.evaluationLatency = auto.NewHistogramVec(m.histogram("evaluation_latency_milliseconds",
		"Histogram of evaluation latency in milliseconds", nil),
		[]string{"exercise"})
	m.findings = auto.NewCounterVec(m.counter("findings_total",
		"Total number of failed form checks by finding"),
		[]string{"finding"})
	m.skippedFrames = auto.NewCounter(m.counter("skipped_frames_total",
		"Total number of frames dropped for zero-length limbs"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current size of the attempt queue"))
	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured number of workers"))
	m.storedOutcomes = auto.NewGauge(m.gauge("stored_outcomes", "Number of outcomes held by the result store"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"})

	m.repositoryWriteLatency = auto.NewHistogram(m.histogram("repository_write_latency_milliseconds",
		"Result store write latency in milliseconds", nil))
	m.repositoryReadLatency = auto.NewHistogram(m.histogram("repository_read_latency_milliseconds",
		"Result store read latency in milliseconds", nil))

	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueue_total", "Total number of attempts enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeue_total", "Total number of attempts dequeued"))
	m.queueLatency = auto.NewHistogram(m.histogram("queue_enqueue_latency_milliseconds",
		"Enqueue latency in milliseconds", nil))

	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Number of workers evaluating an attempt"))
	m.workerIdleCount = auto.NewGauge(m.gauge("worker_idle_count", "Number of workers waiting for attempts"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gauge("worker_messages_per_second",
		"Average attempts processed per second by workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", nil))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Total number of worker errors"))

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Total number of errors by component"),
		[]string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counter("errors_by_type_total",
		"Total number of errors by type"),
		[]string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogram("error_latency_milliseconds",
		"Latency of operations that resulted in errors", nil),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAttemptSubmitted increments the accepted attempts counter.
func RecordAttemptSubmitted() {
	globalManager.attemptsSubmitted.Inc()
}

// RecordAttemptDuplicate increments the duplicate attempts counter.
func RecordAttemptDuplicate() {
	globalManager.attemptsDuplicate.Inc()
}

// RecordEvaluation counts one evaluation. result is one of the Result constants.
func RecordEvaluation(exercise, result string) {
	globalManager.evaluations.WithLabelValues(exercise, result).Inc()
}

// RecordEvaluationLatency records evaluation latency in milliseconds.
func RecordEvaluationLatency(exercise string, latencyMs float64) {
	globalManager.evaluationLatency.WithLabelValues(exercise).Observe(latencyMs)
}

// RecordFinding counts one failed form check.
func RecordFinding(finding string) {
	globalManager.findings.WithLabelValues(finding).Inc()
}

// RecordSkippedFrames adds n dropped frames.
func RecordSkippedFrames(n int) {
	if n > 0 {
		globalManager.skippedFrames.Add(float64(n))
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateStoredOutcomes sets the number of stored outcomes.
func UpdateStoredOutcomes(count int) {
	globalManager.storedOutcomes.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryWriteLatency records result store write latency.
func RecordRepositoryWriteLatency(latencyMs float64) {
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// RecordRepositoryReadLatency records result store read latency.
func RecordRepositoryReadLatency(latencyMs float64) {
	globalManager.repositoryReadLatency.Observe(latencyMs)
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

// RecordQueueLatency records enqueue latency in milliseconds.
func RecordQueueLatency(latencyMs float64) {
	globalManager.queueLatency.Observe(latencyMs)
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average attempts processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

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
