// Package metrics provides Prometheus metrics for the gait inference service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Prediction Metrics - What really matters for an inference service
	predictionsTotal  prometheus.Counter
	predictionErrors  *prometheus.CounterVec
	predictionLatency prometheus.Histogram

	// Pipeline Stage Metrics - Where prediction time goes
	decodeLatency    prometheus.Histogram
	embeddingLatency prometheus.Histogram
	forwardLatency   prometheus.Histogram

	// Model Lifecycle Metrics
	modelReady        prometheus.Gauge
	modelLoadAttempts prometheus.Counter
	modelLoadFailures prometheus.Counter

	// Operational Health Metrics
	inferencesInFlight prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gaitlab",
		subsystem:        "inference",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Prediction Metrics
	m.predictionsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_total",
		Help:      "Total number of predictions served successfully",
	})

	m.predictionErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "prediction_errors_total",
			Help:      "Total number of failed predictions by failure kind",
		},
		[]string{"kind"},
	)

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_milliseconds",
		Help:      "End-to-end prediction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Pipeline Stage Metrics
	m.decodeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decode_latency_milliseconds",
		Help:      "Video decode and frame sampling latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.embeddingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "embedding_latency_milliseconds",
		Help:      "Clinical note embedding latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.forwardLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forward_latency_milliseconds",
		Help:      "Model forward pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Model Lifecycle Metrics
	m.modelReady = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_ready",
		Help:      "Whether the model weights are loaded (1) or not (0)",
	})

	m.modelLoadAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_load_attempts_total",
		Help:      "Total number of model load attempts",
	})

	m.modelLoadFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_load_failures_total",
		Help:      "Total number of failed model load attempts",
	})

	// Operational Health Metrics
	m.inferencesInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inferences_in_flight",
		Help:      "Number of predictions currently executing",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordPrediction increments the successful predictions counter.
func RecordPrediction() {
	globalManager.predictionsTotal.Inc()
}

// RecordPredictionError increments the prediction errors counter for a kind.
// Kinds: invalid_input, not_ready, model_load, decode, embedding, inference.
func RecordPredictionError(kind string) {
	globalManager.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordPredictionLatency records end-to-end prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordDecodeLatency records decode stage latency in milliseconds.
func RecordDecodeLatency(latencyMs float64) {
	globalManager.decodeLatency.Observe(latencyMs)
}

// RecordEmbeddingLatency records embedding stage latency in milliseconds.
func RecordEmbeddingLatency(latencyMs float64) {
	globalManager.embeddingLatency.Observe(latencyMs)
}

// RecordForwardLatency records forward pass latency in milliseconds.
func RecordForwardLatency(latencyMs float64) {
	globalManager.forwardLatency.Observe(latencyMs)
}

// UpdateModelReady sets the model readiness gauge.
func UpdateModelReady(ready bool) {
	if ready {
		globalManager.modelReady.Set(1)
	} else {
		globalManager.modelReady.Set(0)
	}
}

// RecordModelLoadAttempt increments the model load attempts counter.
func RecordModelLoadAttempt() {
	globalManager.modelLoadAttempts.Inc()
}

// RecordModelLoadFailure increments the model load failures counter.
func RecordModelLoadFailure() {
	globalManager.modelLoadFailures.Inc()
}

// UpdateInferencesInFlight sets the number of predictions currently executing.
func UpdateInferencesInFlight(count int) {
	globalManager.inferencesInFlight.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
