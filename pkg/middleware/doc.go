// Package middleware provides net/http middleware for the counter server.
//
// This package includes:
//   - OpenTelemetry request tracing
//   - Prometheus request metrics
//   - Structured access logging with log/slog
//
// All three are plain func(http.Handler) http.Handler values and plug into
// a chi router:
//
//	r := chi.NewRouter()
//	r.Use(chimw.RequestID)
//	r.Use(middleware.AccessLog(logger))
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("counter")))
//	r.Use(m.Handler)
//
// Route labels and span names use the chi route pattern (for example
// "/actions/{action}") rather than the raw path, keeping label
// cardinality bounded.
package middleware
