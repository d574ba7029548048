package vtest

import (
	"slices"
	"sync"
	"testing"

	"github.com/vango-dev/counter/pkg/devtools"
	"github.com/vango-dev/counter/pkg/store"
)

// Event is one recorded inspector event.
type Event struct {
	Store  string
	Action string
	State  any
}

// Inspector is a devtools.Inspector that records every event.
type Inspector struct {
	mu     sync.Mutex
	events []Event
}

var _ devtools.Inspector = (*Inspector)(nil)

// Init implements devtools.Inspector.
func (i *Inspector) Init(name string, state any) {
	i.Send(name, devtools.ActionInit, state)
}

// Send implements devtools.Inspector.
func (i *Inspector) Send(name, action string, state any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.events = append(i.events, Event{Store: name, Action: action, State: state})
}

// Events returns a copy of the recorded events.
func (i *Inspector) Events() []Event {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Event(nil), i.events...)
}

// Actions returns the recorded action labels in order.
func (i *Inspector) Actions() []string {
	events := i.Events()
	out := make([]string, len(events))
	for n, ev := range events {
		out[n] = ev.Action
	}
	return out
}

// ExpectActions asserts the exact sequence of recorded action labels.
func (i *Inspector) ExpectActions(t testing.TB, want ...string) {
	t.Helper()
	if got := i.Actions(); !slices.Equal(got, want) {
		t.Errorf("actions = %v, want %v", got, want)
	}
}

// Call is one selector callback.
type Call[U any] struct {
	Next, Prev U
}

// Recorder records the callbacks of a selector subscription.
type Recorder[U any] struct {
	mu    sync.Mutex
	calls []Call[U]

	// Unsubscribe releases the subscription.
	Unsubscribe func()
}

// Record subscribes a recorder to s through selector. The subscription is
// released when the test ends.
func Record[S, U any](t testing.TB, s *store.Store[S], selector func(S) U, opts ...store.SelectOption[U]) *Recorder[U] {
	r := &Recorder[U]{}
	r.Unsubscribe = store.Select(s, selector, func(next, prev U) {
		r.mu.Lock()
		r.calls = append(r.calls, Call[U]{Next: next, Prev: prev})
		r.mu.Unlock()
	}, opts...)
	t.Cleanup(r.Unsubscribe)
	return r
}

// Calls returns a copy of the recorded callbacks.
func (r *Recorder[U]) Calls() []Call[U] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call[U](nil), r.calls...)
}

// ExpectCount asserts how many callbacks were recorded.
func (r *Recorder[U]) ExpectCount(t testing.TB, want int) {
	t.Helper()
	if got := len(r.Calls()); got != want {
		t.Errorf("callbacks = %d, want %d", got, want)
	}
}
