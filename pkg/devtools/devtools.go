// Package devtools reports store transitions to an inspection channel.
//
// An Inspector receives the initial state of a named store and then one
// event per committed transition. Inspectors observe only; nothing they do
// can change store state, and a failing inspector never fails a mutation.
//
// Available inspectors:
//   - LogInspector writes events to a slog.Logger
//   - Hub broadcasts events to WebSocket clients
//   - Tracer records a span per event with OpenTelemetry
//   - Metrics counts events with Prometheus
//   - Multi fans out to several inspectors
//
// Example:
//
//	hub := devtools.NewHub(devtools.HubConfig{})
//	c := counter.New(store.WithMiddleware[counter.State](
//	    devtools.Middleware[counter.State](hub, devtools.WithName("counter")),
//	))
//	http.Handle("/devtools", hub)
package devtools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/counter/pkg/store"
)

// ActionInit is the action label of the event sent when a store is attached.
const ActionInit = "@@INIT"

// Inspector receives store events. Implementations must not block.
type Inspector interface {
	// Init announces a store and its state at attach time.
	Init(name string, state any)

	// Send reports one transition.
	Send(name, action string, state any)
}

// Option configures the devtools middleware.
type Option func(*config)

type config struct {
	name    string
	enabled bool
	logger  *slog.Logger
}

// WithName sets the store name shown in the inspector. Default: "store".
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// Enabled turns reporting on or off. Default: on.
func Enabled(on bool) Option {
	return func(c *config) {
		c.enabled = on
	}
}

// WithLogger sets the logger used for inspector failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type middleware[S any] struct {
	inspector Inspector
	cfg       config
}

// Middleware returns store middleware that reports to inspector. A nil
// inspector or Enabled(false) yields middleware that does nothing.
func Middleware[S any](inspector Inspector, opts ...Option) store.Middleware[S] {
	cfg := config{
		name:    "store",
		enabled: true,
		logger:  slog.Default().With("component", "devtools"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &middleware[S]{inspector: inspector, cfg: cfg}
}

func (m *middleware[S]) active() bool {
	return m.cfg.enabled && m.inspector != nil
}

func (m *middleware[S]) Attach(s *store.Store[S]) {
	if !m.active() {
		return
	}
	state := s.Get()
	m.guard(ActionInit, func() { m.inspector.Init(m.cfg.name, state) })
}

func (m *middleware[S]) Transition(t store.Transition[S]) {
	if !m.active() {
		return
	}
	m.guard(t.Action, func() { m.inspector.Send(m.cfg.name, t.Action, t.State) })
}

// guard swallows inspector panics.
func (m *middleware[S]) guard(action string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.cfg.logger.Debug("inspector failed",
				"store", m.cfg.name,
				"action", action,
				"panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Multi fans events out to every non-nil inspector. A panicking inspector
// does not stop delivery to the others.
type Multi []Inspector

// Init implements Inspector.
func (m Multi) Init(name string, state any) {
	for _, in := range m {
		if in != nil {
			safe(func() { in.Init(name, state) })
		}
	}
}

// Send implements Inspector.
func (m Multi) Send(name, action string, state any) {
	for _, in := range m {
		if in != nil {
			safe(func() { in.Send(name, action, state) })
		}
	}
}

func safe(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// LogInspector writes events to a logger at the given level.
type LogInspector struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogInspector creates a LogInspector logging at debug level.
func NewLogInspector(logger *slog.Logger) *LogInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInspector{Logger: logger.With("component", "devtools"), Level: slog.LevelDebug}
}

// Init implements Inspector.
func (l *LogInspector) Init(name string, state any) {
	l.Logger.Log(context.Background(), l.Level, "store attached", "store", name, "state", state)
}

// Send implements Inspector.
func (l *LogInspector) Send(name, action string, state any) {
	l.Logger.Log(context.Background(), l.Level, "transition", "store", name, "action", action, "state", state)
}
