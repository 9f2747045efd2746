// Package metrics provides Prometheus metrics for the pulse feedback service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Round lifecycle
	roundsCreated    prometheus.Counter
	roundTransitions *prometheus.CounterVec

	// Assignments and feedback
	assignmentsGenerated prometheus.Counter
	assignmentRuns       prometheus.Counter
	feedbackDiscarded    prometheus.Counter
	feedbackSubmitted    prometheus.Counter
	feedbackDuplicate    prometheus.Counter
	feedbackRejected     *prometheus.CounterVec

	// Theme clustering
	themeSnippets      *prometheus.CounterVec
	unrecognizedTotal  prometheus.Counter
	clusteringDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitHits       *prometheus.CounterVec

	// Event pipeline
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueDropped      prometheus.Counter
	eventsPublished   *prometheus.CounterVec
	publishErrors     prometheus.Counter
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	storeErrors       *prometheus.CounterVec
	errorsByComponent *prometheus.CounterVec

	// System
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
		namespace:        "pulse",
		subsystem:        "feedback",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.roundsCreated = m.counter("rounds_created_total", "Total number of feedback rounds created")
	m.roundTransitions = m.counterVec("round_transitions_total", "Round status transitions by source and target status", "from", "to")

	m.assignmentsGenerated = m.counter("assignments_generated_total", "Total number of rater assignments generated")
	m.assignmentRuns = m.counter("assignment_runs_total", "Total number of assignment (re)generation runs")
	m.feedbackDiscarded = m.counter("feedback_discarded_total", "Feedback removed because its assignment was regenerated")
	m.feedbackSubmitted = m.counter("feedback_submitted_total", "Total number of feedback items stored")
	m.feedbackDuplicate = m.counter("feedback_duplicate_total", "Feedback submissions rejected as duplicates")
	m.feedbackRejected = m.counterVec("feedback_rejected_total", "Feedback submissions rejected by reason", "reason")

	m.themeSnippets = m.counterVec("theme_snippets_total", "Feedback snippets clustered per theme", "theme")
	m.unrecognizedTotal = m.counter("theme_unrecognized_total", "Feedback snippets that matched no theme")
	m.clusteringDuration = m.histogram("clustering_duration_milliseconds", "Theme clustering duration in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimitHits = m.counterVec("rate_limit_hits_total", "Requests rejected by the rate limiter", "route", "key_kind")

	m.queueSize = m.gauge("event_queue_size", "Current number of round events waiting to be published")
	m.queueCapacity = m.gauge("event_queue_capacity", "Capacity of the round event queue")
	m.queueDropped = m.counter("event_queue_dropped_total", "Round events dropped because the queue was full or closed")
	m.eventsPublished = m.counterVec("events_published_total", "Round events published by type", "type")
	m.publishErrors = m.counter("event_publish_errors_total", "Round events that failed to publish")
	m.workerCount = m.gauge("event_worker_count", "Number of event publishing workers")
	m.workerLatency = m.histogram("event_worker_latency_milliseconds", "Time spent publishing a single event")
	m.storeErrors = m.counterVec("store_errors_total", "Store failures by operation", "op")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Current memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average garbage collection pause time")
}

// RecordRoundCreated counts a new round.
func RecordRoundCreated() { globalManager.roundsCreated.Inc() }

// RecordRoundTransition counts a lifecycle move.
func RecordRoundTransition(from, to string) {
	globalManager.roundTransitions.WithLabelValues(from, to).Inc()
}

// RecordAssignmentsGenerated counts one generation run producing n assignments.
func RecordAssignmentsGenerated(n int) {
	globalManager.assignmentRuns.Inc()
	globalManager.assignmentsGenerated.Add(float64(n))
}

// RecordFeedbackDiscarded counts feedback removed by assignment regeneration.
func RecordFeedbackDiscarded(n int) {
	if n > 0 {
		globalManager.feedbackDiscarded.Add(float64(n))
	}
}

// RecordFeedbackSubmitted counts a stored feedback item.
func RecordFeedbackSubmitted() { globalManager.feedbackSubmitted.Inc() }

// RecordFeedbackDuplicate counts a submission lost to the uniqueness constraint.
func RecordFeedbackDuplicate() { globalManager.feedbackDuplicate.Inc() }

// RecordFeedbackRejected counts a submission rejected for reason.
func RecordFeedbackRejected(reason string) {
	globalManager.feedbackRejected.WithLabelValues(reason).Inc()
}

// RecordThemeSnippets adds n clustered snippets for theme.
func RecordThemeSnippets(theme string, n int) {
	if n > 0 {
		globalManager.themeSnippets.WithLabelValues(theme).Add(float64(n))
	}
}

// RecordUnrecognizedSnippets adds n snippets that matched no theme.
func RecordUnrecognizedSnippets(n int) {
	if n > 0 {
		globalManager.unrecognizedTotal.Add(float64(n))
	}
}

// RecordClusteringDuration observes a clustering run.
func RecordClusteringDuration(ms float64) { globalManager.clusteringDuration.Observe(ms) }

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimitHit counts a request rejected by the limiter.
func RecordRateLimitHit(route, keyKind string) {
	globalManager.rateLimitHits.WithLabelValues(route, keyKind).Inc()
}

// UpdateQueueSize sets the event queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the event queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueDropped counts an event that could not be enqueued.
func RecordQueueDropped() { globalManager.queueDropped.Inc() }

// RecordEventPublished counts a published event.
func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordPublishError counts a failed publish.
func RecordPublishError() { globalManager.publishErrors.Inc() }

// UpdateWorkerCount sets the number of publishing workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerLatency observes a single publish.
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordStoreError counts a store failure for op.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
