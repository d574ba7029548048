package devtools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/counter/pkg/store"
)

type state struct {
	Count int `json:"count"`
}

func incr(s state) state { s.Count++; return s }

type event struct {
	name, action string
	state        any
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Init(name string, s any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, ActionInit, s})
}

func (r *recorder) Send(name, action string, s any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, action, s})
}

type panicky struct{}

func (panicky) Init(string, any)         { panic("init") }
func (panicky) Send(string, string, any) { panic("send") }

func TestMiddleware_ReportsInitAndTransitions(t *testing.T) {
	rec := &recorder{}
	s := store.New(state{}, store.WithMiddleware(Middleware[state](rec, WithName("counter"))))

	s.Set("increment", incr)
	s.Set("increment", incr)

	if len(rec.events) != 3 {
		t.Fatalf("events = %d, want 3", len(rec.events))
	}
	if rec.events[0].action != ActionInit || rec.events[0].name != "counter" {
		t.Errorf("first event = %+v, want init for counter", rec.events[0])
	}
	last := rec.events[2]
	if last.action != "increment" || last.state.(state).Count != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestMiddleware_OptionalChannel(t *testing.T) {
	// No inspector: the store behaves exactly the same.
	s := store.New(state{}, store.WithMiddleware(Middleware[state](nil)))
	s.Set("increment", incr)
	if s.Get().Count != 1 {
		t.Errorf("Count = %d, want 1", s.Get().Count)
	}

	rec := &recorder{}
	s2 := store.New(state{}, store.WithMiddleware(Middleware[state](rec, Enabled(false))))
	s2.Set("increment", incr)
	if len(rec.events) != 0 {
		t.Errorf("disabled middleware reported %d events", len(rec.events))
	}
}

func TestMiddleware_PanickingInspectorIsIgnored(t *testing.T) {
	s := store.New(state{}, store.WithMiddleware(Middleware[state](panicky{})))
	s.Set("increment", incr)
	if s.Get().Count != 1 {
		t.Errorf("Count = %d, want 1", s.Get().Count)
	}
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, panicky{}, nil, b}

	m.Init("s", 1)
	m.Send("s", "increment", 2)

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("events a=%d b=%d, want 2 each", len(a.events), len(b.events))
	}
}

func TestLogInspector(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	li := NewLogInspector(logger)

	li.Init("counter", state{})
	li.Send("counter", "increment", state{Count: 1})

	out := buf.String()
	for _, want := range []string{"store attached", "action=increment", "store=counter"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(MetricsConfig{Registry: reg})
	if err != nil {
		t.Fatal(err)
	}

	s := store.New(state{}, store.WithMiddleware(Middleware[state](m, WithName("counter"))))
	s.Set("increment", incr)
	s.Set("increment", incr)
	s.Set("reset", func(state) state { return state{} })

	if got := testutil.ToFloat64(m.Transitions().WithLabelValues("counter", "increment")); got != 2 {
		t.Errorf("increment transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Transitions().WithLabelValues("counter", "reset")); got != 1 {
		t.Errorf("reset transitions = %v, want 1", got)
	}

	if _, err := NewMetrics(MetricsConfig{Registry: reg}); err == nil {
		t.Error("registering twice on the same registry should fail")
	}
}

type recordingTracer struct {
	noop.Tracer
	mu    *sync.Mutex
	spans *[]string
	attrs *[][]attribute.KeyValue
}

func (r recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	r.mu.Lock()
	*r.spans = append(*r.spans, name)
	*r.attrs = append(*r.attrs, cfg.Attributes())
	r.mu.Unlock()
	return r.Tracer.Start(ctx, name, opts...)
}

type recordingProvider struct {
	noop.TracerProvider
	tracer recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func TestTracer(t *testing.T) {
	var spans []string
	var attrs [][]attribute.KeyValue
	tp := recordingProvider{tracer: recordingTracer{mu: &sync.Mutex{}, spans: &spans, attrs: &attrs}}

	tr := NewTracer(tp, "")
	s := store.New(state{}, store.WithMiddleware(Middleware[state](tr, WithName("counter"))))
	s.Set("increment", incr)

	if len(spans) != 2 || spans[0] != "store."+ActionInit || spans[1] != "store.increment" {
		t.Fatalf("spans = %v", spans)
	}
	found := false
	for _, kv := range attrs[1] {
		if kv.Key == "store.state" && kv.Value.AsString() == `{"count":1}` {
			found = true
		}
	}
	if !found {
		t.Errorf("span attributes missing state: %v", attrs[1])
	}

	// The global provider is a no-op by default; this must not panic.
	NewTracer(nil, "").Send("counter", "increment", state{})
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return ev
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_ReplaysHistoryAndStreams(t *testing.T) {
	h := NewHub(HubConfig{History: 2})
	s := store.New(state{}, store.WithMiddleware(Middleware[state](h, WithName("counter"))))
	s.Set("increment", incr)
	s.Set("increment", incr)

	// Only the last two events are retained: the init event was evicted.
	if got := len(h.History()); got != 2 {
		t.Fatalf("history = %d, want 2", got)
	}

	conn := dialHub(t, h)
	first := readEvent(t, conn)
	if first.Type != EventAction || first.Action != "increment" || string(first.State) != `{"count":1}` {
		t.Errorf("first replayed event = %+v", first)
	}
	second := readEvent(t, conn)
	if string(second.State) != `{"count":2}` || second.Seq <= first.Seq {
		t.Errorf("second replayed event = %+v", second)
	}

	waitFor(t, func() bool { return h.ClientCount() == 1 })

	s.Set("reset", func(state) state { return state{} })
	live := readEvent(t, conn)
	if live.Action != "reset" || string(live.State) != `{"count":0}` || live.Store != "counter" {
		t.Errorf("live event = %+v", live)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	h := NewHub(HubConfig{})
	conn := dialHub(t, h)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	// Publishing with no clients is fine.
	h.Send("counter", "increment", state{Count: 1})
}

func TestHub_SendNeverBlocks(t *testing.T) {
	h := NewHub(HubConfig{ClientBuffer: 1, History: 1})
	// A client that never reads.
	dialHub(t, h)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			h.Send("counter", "increment", state{Count: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Send blocked on a slow client")
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub(HubConfig{})
	dialHub(t, h)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	h.Send("counter", "increment", state{Count: 1})
	if got := len(h.History()); got != 1 {
		t.Errorf("history after Close = %d, want 1", got)
	}
}
