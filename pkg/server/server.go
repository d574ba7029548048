// Package server serves the counter over HTTP.
//
// Routes:
//
//	GET  /                 the counter page
//	GET  /state            the current state as JSON
//	POST /actions/{action} run increment, decrement or reset
//	GET  /live             WebSocket live view
//	GET  /devtools         WebSocket inspector hub (when configured)
//	GET  /metrics          Prometheus metrics (when enabled)
//	GET  /healthz          liveness probe
//
// Every /live connection mounts its own view.CounterView on the shared
// counter, receives the rendered HTML after each re-render and may send
// {"action": "..."} messages to trigger the view's controls.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/counter/pkg/counter"
	"github.com/vango-dev/counter/pkg/devtools"
	"github.com/vango-dev/counter/pkg/middleware"
)

// Server is the HTTP/WebSocket server for one counter.
type Server struct {
	config  Config
	counter *counter.Counter

	router   chi.Router
	upgrader websocket.Upgrader
	hub      *devtools.Hub

	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
	metrics        *middleware.Metrics
	tracerProvider trace.TracerProvider

	onShutdown []func(ctx context.Context) error

	// live tracks open /live connections so Shutdown can close them;
	// http.Server.Shutdown does not close hijacked connections.
	liveMu sync.Mutex
	live   map[*websocket.Conn]struct{}
	liveWG sync.WaitGroup

	httpServer *http.Server
	addr       chan net.Addr

	logger     *slog.Logger
	baseLogger *slog.Logger
}

// New creates a Server for c. A nil c serves a fresh counter starting at
// zero. It panics if metrics cannot be registered, for example when two
// servers share a registry.
func New(config Config, c *counter.Counter, opts ...Option) *Server {
	if c == nil {
		c = counter.New()
	}
	s := &Server{
		config:     config.withDefaults(),
		counter:    c,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		live:       make(map[*websocket.Conn]struct{}),
		addr:       make(chan net.Addr, 1),
		logger:     slog.Default().With("component", "server"),
		baseLogger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.config.CheckOrigin,
	}

	if s.config.Metrics {
		s.metrics = middleware.NewMetrics(
			middleware.WithNamespace(s.config.MetricsNamespace),
			middleware.WithRegistry(s.registerer),
		)
		s.registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: s.config.MetricsNamespace,
			Name:      "count",
			Help:      "Current counter value",
		}, func() float64 {
			return float64(s.counter.Snapshot().Count)
		}))
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(s.baseLogger))
	if s.config.Tracing {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerName(s.config.TracerName),
			middleware.WithTracerProvider(s.tracerProvider),
		))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Handler)
	}

	r.Get("/", s.handlePage)
	r.Get("/state", s.handleState)
	r.Post("/actions/{action}", s.handleAction)
	r.Get("/live", s.handleLive)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.hub != nil {
		r.Get("/devtools", s.hub.ServeHTTP)
	}
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.addr <- ln.Addr()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Addr blocks until Serve has a listener and returns its address.
func (s *Server) Addr() net.Addr {
	a := <-s.addr
	s.addr <- a
	return a
}

// Shutdown stops accepting requests, closes live connections, waits for
// in-flight requests and runs the shutdown hooks.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}

	s.closeLive()
	if s.hub != nil {
		s.hub.Close()
	}

	for _, fn := range s.onShutdown {
		if err := fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", "error", err)
			errs = append(errs, err)
		}
	}

	s.logger.Info("server shutdown complete")
	return errors.Join(errs...)
}

// LiveCount returns the number of open /live connections.
func (s *Server) LiveCount() int {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return len(s.live)
}

func (s *Server) closeLive() {
	s.liveMu.Lock()
	for conn := range s.live {
		conn.Close()
	}
	s.liveMu.Unlock()
	s.liveWG.Wait()
}
