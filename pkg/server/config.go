package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/counter/pkg/devtools"
)

// Config holds HTTP server settings.
type Config struct {
	// Address is the listen address. Default: "localhost:3000".
	Address string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// WriteTimeout bounds each live-view WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize is the maximum size of a live-view client message.
	// Default: 4KB.
	MaxMessageSize int64

	// Metrics enables request metrics, the count gauge and /metrics.
	Metrics bool

	// MetricsNamespace prefixes every metric. Default: "counter".
	MetricsNamespace string

	// Tracing enables a span per request.
	Tracing bool

	// TracerName names the request tracer.
	TracerName string

	// CheckOrigin is passed to the WebSocket upgrader.
	// Default: allow all origins.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:           "localhost:3000",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    4 * 1024,
		Metrics:           true,
		MetricsNamespace:  "counter",
		CheckOrigin:       func(*http.Request) bool { return true },
	}
}

// withDefaults fills unset fields from DefaultConfig. Booleans are kept.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = d.MetricsNamespace
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	return c
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.With("component", "server")
			s.baseLogger = logger
		}
	}
}

// WithHub serves hub at /devtools.
func WithHub(hub *devtools.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// WithRegistry registers metrics on reg and serves it at /metrics.
// Default: the Prometheus default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registerer = reg
			s.gatherer = reg
		}
	}
}

// WithTracerProvider sets the provider for request spans.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

// WithOnShutdown adds a hook run after the HTTP server has stopped, for
// example to flush pending persistence writes.
func WithOnShutdown(fn func(ctx context.Context) error) Option {
	return func(s *Server) {
		if fn != nil {
			s.onShutdown = append(s.onShutdown, fn)
		}
	}
}
