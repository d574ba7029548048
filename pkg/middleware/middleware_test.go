package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func newRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw...)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return r
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	r := newRouter(m.Handler)

	do(r, "GET", "/items/1")
	do(r, "GET", "/items/2")
	do(r, "GET", "/boom")
	do(r, "GET", "/missing")

	if got := testutil.ToFloat64(m.Requests().WithLabelValues("/items/{id}", "GET", "200")); got != 2 {
		t.Errorf("/items/{id} 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests().WithLabelValues("/boom", "GET", "500")); got != 1 {
		t.Errorf("/boom 500 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests().WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched 404 = %v, want 1", got)
	}

	if n, err := testutil.GatherAndCount(reg, "test_http_request_duration_seconds"); err != nil || n != 3 {
		t.Errorf("duration series = %d, %v; want 3", n, err)
	}
}

func TestMetrics_LiveConnections(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	m.LiveOpened()
	m.LiveOpened()
	m.LiveClosed()
	if got := testutil.ToFloat64(m.LiveConnections()); got != 1 {
		t.Errorf("live connections = %v, want 1", got)
	}

	// A nil *Metrics is a valid no-op recorder.
	var none *Metrics
	none.LiveOpened()
	none.RecordWebSocketError("read")
}

type span struct {
	name  string
	attrs map[attribute.Key]attribute.Value
}

type recordingSpan struct {
	noop.Span
	mu   *sync.Mutex
	data *span
}

func (s recordingSpan) SetName(name string) {
	s.mu.Lock()
	s.data.name = name
	s.mu.Unlock()
}

func (s recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	for _, a := range kv {
		s.data.attrs[a.Key] = a.Value
	}
	s.mu.Unlock()
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*span
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	sp := &span{name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, a := range cfg.Attributes() {
		sp.attrs[a.Key] = a.Value
	}
	r.mu.Lock()
	r.spans = append(r.spans, sp)
	r.mu.Unlock()
	s := recordingSpan{mu: &r.mu, data: sp}
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func TestOpenTelemetry(t *testing.T) {
	tr := &recordingTracer{}
	r := newRouter(OpenTelemetry(
		WithTracerProvider(recordingProvider{tracer: tr}),
		WithFilter(func(r *http.Request) bool { return r.URL.Path != "/boom" }),
	))

	do(r, "GET", "/items/7")
	do(r, "GET", "/boom")

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.spans) != 1 {
		t.Fatalf("spans = %d, want 1 (filtered request traced?)", len(tr.spans))
	}
	sp := tr.spans[0]
	if sp.name != "HTTP GET /items/{id}" {
		t.Errorf("span name = %q", sp.name)
	}
	if got := sp.attrs["http.status_code"].AsInt64(); got != 200 {
		t.Errorf("http.status_code = %d, want 200", got)
	}
	if got := sp.attrs["http.target"].AsString(); got != "/items/7" {
		t.Errorf("http.target = %q", got)
	}
	if sp.attrs["http.request_id"].AsString() == "" {
		t.Error("request id not recorded")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := newRouter(AccessLog(logger))

	do(r, "GET", "/items/1")
	do(r, "GET", "/boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "status=200") ||
		!strings.Contains(lines[0], "path=/items/1") || !strings.Contains(lines[0], "component=http") {
		t.Errorf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "status=500") {
		t.Errorf("unexpected second line: %s", lines[1])
	}
}
