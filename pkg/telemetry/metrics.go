package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the operation metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "resize").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration, in seconds.
	// Operations include stopping and starting an instance, so the
	// defaults reach into minutes.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the operation metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// DefaultBuckets spans one second to ten minutes.
var DefaultBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "resize",
		Buckets:   DefaultBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for resize operations.
type Metrics struct {
	operationsStarted  prometheus.Counter
	operationsFinished *prometheus.CounterVec
	framesReceived     *prometheus.CounterVec
	decodeErrors       prometheus.Counter
	channelErrors      prometheus.Counter
	inFlight           prometheus.Gauge
	duration           prometheus.Histogram
}

// NewMetrics registers the operation collectors. Registering twice with the
// same registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = DefaultBuckets
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		operationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_started_total",
			Help:        "Total number of resize operations started",
			ConstLabels: config.ConstLabels,
		}),

		operationsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_finished_total",
			Help:        "Total number of resize operations finished, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total number of status frames received, by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_errors_total",
			Help:        "Total number of undecodable status frames",
			ConstLabels: config.ConstLabels,
		}),

		channelErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "channel_errors_total",
			Help:        "Total number of WebSocket transport errors",
			ConstLabels: config.ConstLabels,
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_in_flight",
			Help:        "Number of resize operations in flight",
			ConstLabels: config.ConstLabels,
		}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Resize operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// OperationStarted records a new operation.
func (m *Metrics) OperationStarted() {
	if m == nil {
		return
	}
	m.operationsStarted.Inc()
	m.inFlight.Inc()
}

// OperationFinished records a finished operation and how long it took.
func (m *Metrics) OperationFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsFinished.WithLabelValues(outcome).Inc()
	m.inFlight.Dec()
	m.duration.Observe(d.Seconds())
}

// FrameReceived records an inbound frame with its status.
func (m *Metrics) FrameReceived(status string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(status).Inc()
}

// DecodeError records an undecodable frame.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// ChannelError records a transport error.
func (m *Metrics) ChannelError() {
	if m == nil {
		return
	}
	m.channelErrors.Inc()
}
