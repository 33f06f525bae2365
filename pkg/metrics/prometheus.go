// Package metrics provides Prometheus metrics for the spendlens service.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis
	analyses         *prometheus.CounterVec
	analysisLatency  prometheus.Histogram
	personalitySrc   *prometheus.CounterVec
	anomalyFindings  *prometheus.CounterVec
	riskLevels       *prometheus.CounterVec
	alertsEmitted    *prometheus.CounterVec
	invalidEvents    prometheus.Counter
	outlierDecisions prometheus.Histogram

	// Models
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	trainedSubjects  prometheus.Gauge
	modelLoads       *prometheus.CounterVec

	// Ingestion
	eventsIngested  prometheus.Counter
	eventsDuplicate prometheus.Counter
	subjectsTotal   prometheus.Gauge
	repoAppendLat   prometheus.Histogram
	repoQueryLat    prometheus.Histogram
	artifactIOLat   *prometheus.HistogramVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Workers
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "spendlens",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	ms := []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	m.analyses = auto.NewCounterVec(m.counterOpts("analyses_total",
		"Subject analyses by outcome status (ok, insufficient_data)"), []string{"status"})
	m.analysisLatency = auto.NewHistogram(m.histogramOpts("analysis_latency_milliseconds",
		"End-to-end latency of a subject analysis in milliseconds", ms))
	m.personalitySrc = auto.NewCounterVec(m.counterOpts("personality_inference_total",
		"Personality classifications by source (model, rules, none)"), []string{"source"})
	m.anomalyFindings = auto.NewCounterVec(m.counterOpts("anomaly_findings_total",
		"Anomaly findings reported, by type and severity"), []string{"type", "severity"})
	m.riskLevels = auto.NewCounterVec(m.counterOpts("anomaly_risk_levels_total",
		"Anomaly reports by overall risk level"), []string{"level"})
	m.alertsEmitted = auto.NewCounterVec(m.counterOpts("alerts_emitted_total",
		"Fused alerts returned to callers, by severity"), []string{"severity"})
	m.invalidEvents = auto.NewCounter(m.counterOpts("invalid_events_total",
		"Purchase events excluded from feature extraction as invalid"))
	m.outlierDecisions = auto.NewHistogram(m.histogramOpts("outlier_decision",
		"Isolation forest decision values (negative means outlier)",
		[]float64{-0.3, -0.2, -0.1, -0.05, 0, 0.05, 0.1, 0.2, 0.3}))

	m.trainingRuns = auto.NewCounterVec(m.counterOpts("model_training_total",
		"Population model training runs by outcome"), []string{"outcome"})
	m.trainingDuration = auto.NewHistogram(m.histogramOpts("model_training_duration_milliseconds",
		"Duration of population model training in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}))
	m.trainedSubjects = auto.NewGauge(m.gaugeOpts("model_trained_subjects",
		"Number of subjects in the last successful training population"))
	m.modelLoads = auto.NewCounterVec(m.counterOpts("model_load_total",
		"Model artifact loads by role and outcome"), []string{"role", "outcome"})

	m.eventsIngested = auto.NewCounter(m.counterOpts("events_ingested_total",
		"Purchase events persisted to the event store"))
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total",
		"Purchase events rejected as duplicates"))
	m.subjectsTotal = auto.NewGauge(m.gaugeOpts("subjects_total",
		"Distinct subjects with at least one stored event"))
	m.repoAppendLat = auto.NewHistogram(m.histogramOpts("repository_append_latency_milliseconds",
		"Event store append latency in milliseconds", ms))
	m.repoQueryLat = auto.NewHistogram(m.histogramOpts("repository_query_latency_milliseconds",
		"Event store query latency in milliseconds", ms))
	m.artifactIOLat = auto.NewHistogramVec(m.histogramOpts("artifact_io_latency_milliseconds",
		"Model artifact store latency in milliseconds", ms), []string{"op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current ingestion queue backlog"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum ingestion queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Ingestion queue utilization (size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Events dequeued"))
	m.queueEnqueueErrs = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Events rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured ingestion workers"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Ingestion workers currently running"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time for a worker to persist one event in milliseconds", ms))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker persistence errors"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", ms), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and kind"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// SetEnabled turns recording through the package helpers on or off.
func SetEnabled(on bool) {
	globalManager.enabled.Store(on)
}

// Enabled reports whether the package helpers record anything.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// SetRefreshInterval changes how often background gauges are refreshed.
// Non-positive values are ignored.
func SetRefreshInterval(d time.Duration) {
	if d > 0 {
		globalManager.refreshInterval.Store(int64(d))
	}
}

// RefreshInterval is the period of background gauge refresh loops.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// RefreshInterval is the gauge refresh period of m.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

// Enabled reports whether m records.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

func active() *Manager {
	if m := globalManager; m.enabled.Load() {
		return m
	}
	return nil
}

// RecordAnalysis counts a finished analysis and its latency.
func RecordAnalysis(status string, latencyMs float64) {
	if m := active(); m != nil {
		m.analyses.WithLabelValues(status).Inc()
		m.analysisLatency.Observe(latencyMs)
	}
}

// RecordPersonalitySource counts which path produced a profile.
func RecordPersonalitySource(source string) {
	if m := active(); m != nil {
		m.personalitySrc.WithLabelValues(source).Inc()
	}
}

// RecordAnomalyFinding counts one reported finding.
func RecordAnomalyFinding(findingType, severity string) {
	if m := active(); m != nil {
		m.anomalyFindings.WithLabelValues(findingType, severity).Inc()
	}
}

// RecordRiskLevel counts one anomaly report by risk level.
func RecordRiskLevel(level string) {
	if m := active(); m != nil {
		m.riskLevels.WithLabelValues(level).Inc()
	}
}

// RecordAlertEmitted counts one fused alert.
func RecordAlertEmitted(severity string) {
	if m := active(); m != nil {
		m.alertsEmitted.WithLabelValues(severity).Inc()
	}
}

// RecordInvalidEvents adds excluded events.
func RecordInvalidEvents(n int) {
	if m := active(); m != nil && n > 0 {
		m.invalidEvents.Add(float64(n))
	}
}

// RecordOutlierDecision observes an isolation forest decision value.
func RecordOutlierDecision(decision float64) {
	if m := active(); m != nil {
		m.outlierDecisions.Observe(decision)
	}
}

// RecordTraining counts a training run and its duration.
func RecordTraining(outcome string, durationMs float64) {
	if m := active(); m != nil {
		m.trainingRuns.WithLabelValues(outcome).Inc()
		m.trainingDuration.Observe(durationMs)
	}
}

// UpdateTrainedSubjects sets the size of the last training population.
func UpdateTrainedSubjects(n int) {
	if m := active(); m != nil {
		m.trainedSubjects.Set(float64(n))
	}
}

// RecordModelLoad counts a model artifact load attempt.
func RecordModelLoad(role, outcome string) {
	if m := active(); m != nil {
		m.modelLoads.WithLabelValues(role, outcome).Inc()
	}
}

// RecordEventIngested increments the ingested events counter.
func RecordEventIngested() {
	if m := active(); m != nil {
		m.eventsIngested.Inc()
	}
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	if m := active(); m != nil {
		m.eventsDuplicate.Inc()
	}
}

// UpdateSubjectsTotal sets the number of known subjects.
func UpdateSubjectsTotal(n int) {
	if m := active(); m != nil {
		m.subjectsTotal.Set(float64(n))
	}
}

// RecordRepositoryAppendLatency records event store append latency.
func RecordRepositoryAppendLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repoAppendLat.Observe(latencyMs)
	}
}

// RecordRepositoryQueryLatency records event store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repoQueryLat.Observe(latencyMs)
	}
}

// RecordArtifactIO records artifact store latency for op (load or save).
func RecordArtifactIO(op string, latencyMs float64) {
	if m := active(); m != nil {
		m.artifactIOLat.WithLabelValues(op).Observe(latencyMs)
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if m := active(); m != nil {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := active(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if m := active(); m != nil {
		m.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if m := active(); m != nil {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if m := active(); m != nil {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if m := active(); m != nil {
		m.queueEnqueueErrs.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if m := active(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if m := active(); m != nil {
		m.workerActive.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.workerLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if m := active(); m != nil {
		m.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := active(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if m := active(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := active(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := active(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Totals sums counter and gauge samples of the named families (full names,
// namespace included) on the service registry. Missing families read as 0.
func Totals(names ...string) (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatherFailed, err)
	}
	want := make(map[string]bool, len(names))
	out := make(map[string]float64, len(names))
	for _, n := range names {
		want[n] = true
		out[n] = 0
	}
	for _, mf := range families {
		if !want[mf.GetName()] {
			continue
		}
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				out[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
