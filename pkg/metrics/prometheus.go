// Package metrics provides Prometheus metrics for the pulse scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	scoringRuns          *prometheus.CounterVec
	scoringRunDuration   prometheus.Histogram
	pillarScores         *prometheus.HistogramVec
	overallScores        prometheus.Histogram
	tierAssignments      *prometheus.CounterVec
	interventionsEmitted *prometheus.CounterVec

	// Collaborators
	collectorFallbacks  *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	peerPopulation      prometheus.Gauge

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueRejected *prometheus.CounterVec
	queueDequeued prometheus.Counter
	dedupeSkipped prometheus.Counter
	dedupeTracked prometheus.Gauge

	// Workers
	workerCount       prometheus.Gauge
	workerJobs        *prometheus.CounterVec
	workerJobDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pulse",
		subsystem:        "scoring",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.scoringRuns = auto.NewCounterVec(m.counterOpts("runs_total",
		"Scoring runs by outcome (ok, invalid, fatal)"), []string{"outcome"})
	m.scoringRunDuration = auto.NewHistogram(m.histogramOpts("run_duration_milliseconds",
		"End-to-end duration of a scoring run in milliseconds", m.histogramBuckets))
	m.pillarScores = auto.NewHistogramVec(m.histogramOpts("pillar_score",
		"Distribution of computed pillar scores", prometheus.LinearBuckets(0, 4, 6)), []string{"pillar"})
	m.overallScores = auto.NewHistogram(m.histogramOpts("overall_score",
		"Distribution of computed overall scores", prometheus.LinearBuckets(0, 10, 11)))
	m.tierAssignments = auto.NewCounterVec(m.counterOpts("tier_assignments_total",
		"Performance tiers assigned by the benchmarker"), []string{"tier"})
	m.interventionsEmitted = auto.NewCounterVec(m.counterOpts("interventions_total",
		"Interventions emitted by trigger and severity"), []string{"trigger", "severity"})

	m.collectorFallbacks = auto.NewCounterVec(m.counterOpts("collector_fallbacks_total",
		"Metric categories that defaulted after a failed read"), []string{"category"})
	m.persistenceFailures = auto.NewCounterVec(m.counterOpts("persistence_failures_total",
		"Failed writes tolerated during a scoring run"), []string{"kind"})
	m.peerPopulation = auto.NewGauge(m.gaugeOpts("peer_population",
		"Subjects tracked in the peer population"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current recompute queue backlog"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Recompute queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs accepted by the queue"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("queue_rejected_total",
		"Jobs rejected by the queue by reason"), []string{"reason"})
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs handed to workers"))
	m.dedupeSkipped = auto.NewCounter(m.counterOpts("dedupe_skipped_total",
		"Recompute requests skipped because the period was already scored"))
	m.dedupeTracked = auto.NewGauge(m.gaugeOpts("dedupe_tracked", "Period keys held by the deduper"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running recompute workers"))
	m.workerJobs = auto.NewCounterVec(m.counterOpts("worker_jobs_total",
		"Recompute jobs by outcome"), []string{"outcome"})
	m.workerJobDuration = auto.NewHistogram(m.histogramOpts("worker_job_duration_milliseconds",
		"Recompute job duration in milliseconds", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// RecordScoringRun counts a finished scoring run.
func RecordScoringRun(outcome string, durationMs float64) {
	globalManager.scoringRuns.WithLabelValues(outcome).Inc()
	globalManager.scoringRunDuration.Observe(durationMs)
}

// ObservePillarScore records one pillar score.
func ObservePillarScore(pillar string, score int) {
	globalManager.pillarScores.WithLabelValues(pillar).Observe(float64(score))
}

// ObserveOverallScore records one overall score.
func ObserveOverallScore(score int) {
	globalManager.overallScores.Observe(float64(score))
}

// RecordTier counts a tier assignment.
func RecordTier(tier string) {
	globalManager.tierAssignments.WithLabelValues(tier).Inc()
}

// RecordIntervention counts an emitted intervention.
func RecordIntervention(trigger, severity string) {
	globalManager.interventionsEmitted.WithLabelValues(trigger, severity).Inc()
}

// RecordCollectorFallback counts a metric category that fell back to its default.
func RecordCollectorFallback(category string) {
	globalManager.collectorFallbacks.WithLabelValues(category).Inc()
}

// RecordPersistenceFailure counts a tolerated write failure.
func RecordPersistenceFailure(kind string) {
	globalManager.persistenceFailures.WithLabelValues(kind).Inc()
}

// UpdatePeerPopulation sets the peer population size.
func UpdatePeerPopulation(count int) {
	globalManager.peerPopulation.Set(float64(count))
}

// UpdateQueueSize sets the current queue backlog.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordDedupeSkipped counts a recompute skipped by the deduper.
func RecordDedupeSkipped() {
	globalManager.dedupeSkipped.Inc()
}

// UpdateDedupeTracked sets the number of period keys held.
func UpdateDedupeTracked(count int64) {
	globalManager.dedupeTracked.Set(float64(count))
}

// UpdateWorkerCount sets the running worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerJob counts a processed job.
func RecordWorkerJob(outcome string, durationMs float64) {
	globalManager.workerJobs.WithLabelValues(outcome).Inc()
	globalManager.workerJobDuration.Observe(durationMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
