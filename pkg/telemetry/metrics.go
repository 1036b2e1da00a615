// Package telemetry exposes Prometheus metrics and OpenTelemetry spans for
// template operations and the preview server.
package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
)

// Config configures Metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "vtemplate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors and serves Handler.
	// Default: a fresh registry.
	Registry *prometheus.Registry
}

// Option configures Metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vtemplate",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	domWrites         *prometheus.CounterVec
	clients           prometheus.Gauge
}

// NewMetrics registers the collectors.
//
// Metrics collected:
//   - vtemplate_operations_total: operations by name and status
//   - vtemplate_operation_duration_seconds: operation duration by name
//   - vtemplate_operation_errors_total: failed operations by error kind
//   - vtemplate_dom_writes_total: observed DOM patches by op
//   - vtemplate_preview_clients: connected preview clients
func NewMetrics(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of template operations",
			ConstLabels: config.ConstLabels,
		}, []string{"operation", "status"}),

		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Template operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"operation"}),

		operationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_errors_total",
			Help:        "Total number of failed template operations by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"operation", "kind"}),

		domWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dom_writes_total",
			Help:        "Total number of DOM patches observed",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "preview_clients",
			Help:        "Number of connected preview clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation records one operation that started at start.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		m.operationErrors.WithLabelValues(operation, ErrorKind(err)).Inc()
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveDocument counts every patch doc emits until off is called.
func (m *Metrics) ObserveDocument(doc *dom.Document) (off func()) {
	return doc.OnPatch(func(p dom.Patch) {
		m.domWrites.WithLabelValues(p.Op.String()).Inc()
	})
}

// ClientConnected increments the preview client gauge.
func (m *Metrics) ClientConnected() { m.clients.Inc() }

// ClientDisconnected decrements the preview client gauge.
func (m *Metrics) ClientDisconnected() { m.clients.Dec() }

// ErrorKind maps template errors to a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, template.ErrMalformedDefinition):
		return "malformed_definition"
	case errors.Is(err, template.ErrStructuralMismatch):
		return "structural_mismatch"
	case errors.Is(err, template.ErrAlreadyRendered):
		return "already_rendered"
	case errors.Is(err, template.ErrRevertWithoutApply):
		return "revert_without_apply"
	default:
		return "internal"
	}
}
