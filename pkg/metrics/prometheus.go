// Package metrics provides Prometheus metrics for the midiverse render service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the render service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Render pipeline
	rendersTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	pipelineErrors  *prometheus.CounterVec
	encodedBytes    prometheus.Counter
	renderedFrames  prometheus.Counter
	parseWarnings   prometheus.Counter
	artifactWrites  prometheus.Counter
	artifactLockErr prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	queueWaitLatency   prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerBusy              prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "midiverse",
		subsystem:        "render",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.rendersTotal = auto.NewCounterVec(
		m.counterOpts("renders_total", "Total number of pipeline runs by engine and outcome"),
		[]string{"engine", "outcome"},
	)
	m.stageDuration = auto.NewHistogramVec(
		m.histogramOpts("stage_duration_milliseconds", "Duration of each pipeline stage in milliseconds"),
		[]string{"stage"},
	)
	m.pipelineErrors = auto.NewCounterVec(
		m.counterOpts("pipeline_errors_total", "Pipeline failures by stage"),
		[]string{"stage"},
	)
	m.encodedBytes = auto.NewCounter(m.counterOpts("encoded_bytes_total", "Total bytes of encoded WAV containers"))
	m.renderedFrames = auto.NewCounter(m.counterOpts("rendered_frames_total", "Total audio frames produced by engines"))
	m.parseWarnings = auto.NewCounter(m.counterOpts("parse_warnings_total", "Non-fatal warnings raised while parsing performance files"))
	m.artifactWrites = auto.NewCounter(m.counterOpts("artifact_writes_total", "Artifacts persisted to the output directory"))
	m.artifactLockErr = auto.NewCounter(m.counterOpts("artifact_lock_errors_total", "Failures acquiring an artifact lock"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current number of queued render jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum number of queued render jobs"))
	m.queueEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Rejected render jobs by reason"),
		[]string{"reason"},
	)
	m.queueWaitLatency = auto.NewHistogram(m.histogramOpts("queue_wait_milliseconds", "Time a job spent queued before a worker picked it up"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of render workers"))
	m.workerBusy = auto.NewGauge(m.gaugeOpts("worker_busy", "Workers currently running a pipeline"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_milliseconds", "End-to-end job processing time"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs that finished with an error"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP errors by endpoint, method and error type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// Render pipeline metric functions.

// RecordRender counts a finished pipeline run.
func RecordRender(engine, outcome string) {
	globalManager.rendersTotal.WithLabelValues(engine, outcome).Inc()
}

// RecordStageDuration observes how long a pipeline stage took.
func RecordStageDuration(stage string, d time.Duration) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

// RecordPipelineError counts a failure in the given stage.
func RecordPipelineError(stage string) {
	globalManager.pipelineErrors.WithLabelValues(stage).Inc()
}

// RecordEncodedBytes adds to the encoded byte total.
func RecordEncodedBytes(n int) {
	globalManager.encodedBytes.Add(float64(n))
}

// RecordRenderedFrames adds to the rendered frame total.
func RecordRenderedFrames(n int) {
	globalManager.renderedFrames.Add(float64(n))
}

// RecordParseWarnings adds n parser warnings.
func RecordParseWarnings(n int) {
	globalManager.parseWarnings.Add(float64(n))
}

// RecordArtifactWrite counts a persisted artifact.
func RecordArtifactWrite() {
	globalManager.artifactWrites.Inc()
}

// RecordArtifactLockError counts a lock acquisition failure.
func RecordArtifactLockError() {
	globalManager.artifactLockErr.Inc()
}

// Queue metric functions.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordQueueWait observes queue wait time.
func RecordQueueWait(d time.Duration) {
	globalManager.queueWaitLatency.Observe(float64(d.Milliseconds()))
}

// Worker metric functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// WorkerBusy increments or decrements the busy worker gauge.
func WorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(float64(d.Milliseconds()))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP metric functions.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metric functions.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
