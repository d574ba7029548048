package devtools

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultTracerName is the tracer used when none is configured.
const defaultTracerName = "github.com/vango-dev/counter/pkg/devtools"

// Tracer is an Inspector that records one short span per event.
type Tracer struct {
	tracer trace.Tracer
}

// Compile-time interface check.
var _ Inspector = (*Tracer)(nil)

// NewTracer creates a Tracer from tp. A nil tp uses the global provider.
func NewTracer(tp trace.TracerProvider, name string) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if name == "" {
		name = defaultTracerName
	}
	return &Tracer{tracer: tp.Tracer(name)}
}

// Init implements Inspector.
func (t *Tracer) Init(name string, state any) {
	t.record(name, ActionInit, state)
}

// Send implements Inspector.
func (t *Tracer) Send(name, action string, state any) {
	t.record(name, action, state)
}

func (t *Tracer) record(name, action string, state any) {
	attrs := []attribute.KeyValue{
		attribute.String("store.name", name),
		attribute.String("store.action", action),
	}
	if b, err := json.Marshal(state); err == nil {
		attrs = append(attrs, attribute.String("store.state", string(b)))
	}
	_, span := t.tracer.Start(context.Background(), "store."+action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	span.End()
}

// MetricsConfig configures the Prometheus inspector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "counter").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics is an Inspector that counts transitions per store and action.
type Metrics struct {
	transitions *prometheus.CounterVec
	attached    *prometheus.CounterVec
}

// Compile-time interface check.
var _ Inspector = (*Metrics)(nil)

// NewMetrics registers the inspector's collectors with cfg.Registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "counter"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "store_transitions_total",
			Help:      "Total number of committed store transitions",
		}, []string{"store", "action"}),
		attached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "store_attached_total",
			Help:      "Total number of stores attached to the inspector",
		}, []string{"store"}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.attached} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Init implements Inspector.
func (m *Metrics) Init(name string, _ any) {
	m.attached.WithLabelValues(name).Inc()
}

// Send implements Inspector.
func (m *Metrics) Send(name, action string, _ any) {
	m.transitions.WithLabelValues(name, action).Inc()
}

// Transitions returns the transitions counter for use in custom collectors
// and tests.
func (m *Metrics) Transitions() *prometheus.CounterVec {
	return m.transitions
}
