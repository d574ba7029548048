// Package store provides a small observable state container.
//
// A Store owns a single value of type S. The value is replaced only through
// Set, which applies an updater function atomically and then notifies
// subscribers synchronously, in subscription order. Selector subscriptions
// (see Select) cache the last projected value and fire only when the
// projection changes under shallow comparison.
//
// Example:
//
//	type State struct{ Count int }
//
//	s := store.New(State{})
//	stop := store.Select(s, func(st State) int { return st.Count }, func(n, prev int) {
//	    fmt.Println("count", prev, "->", n)
//	})
//	defer stop()
//
//	s.Set("increment", func(st State) State { st.Count++; return st })
package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Transition describes one committed state change.
type Transition[S any] struct {
	// Seq is the store-local sequence number, starting at 1.
	Seq uint64

	// Action is the label passed to Set.
	Action string

	// State is the state after the change.
	State S

	// Prev is the state before the change.
	Prev S

	// At is when the change was committed.
	At time.Time
}

// Listener receives every committed state change.
type Listener[S any] func(state, prev S)

// Middleware observes a store. Attach is called once from New, before New
// returns, and may call Replace (for example to hydrate persisted state).
// Transition is called after listeners have been notified.
type Middleware[S any] interface {
	Attach(s *Store[S])
	Transition(t Transition[S])
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithLogger sets the logger used for middleware failures.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEquality sets the function used to detect no-op updates.
// Default: Shallow.
func WithEquality[S any](eq func(a, b S) bool) Option[S] {
	return func(s *Store[S]) {
		if eq != nil {
			s.equal = eq
		}
	}
}

// WithMiddleware appends middleware. Middleware is attached in order.
func WithMiddleware[S any](mw ...Middleware[S]) Option[S] {
	return func(s *Store[S]) {
		for _, m := range mw {
			if m != nil {
				s.middleware = append(s.middleware, m)
			}
		}
	}
}

type subscription[S any] struct {
	id uint64
	fn Listener[S]

	// since is the sequence number current when the subscription was made.
	// Transitions at or below it are already reflected in what the
	// subscriber saw and are not delivered.
	since uint64
}

// Store is an observable container for a value of type S.
// It is safe for concurrent use.
type Store[S any] struct {
	mu      sync.Mutex
	state   S
	initial S
	seq     uint64

	subs   []subscription[S]
	nextID uint64

	// pending holds transitions not yet delivered. Only the goroutine that
	// set dispatching drains it.
	pending     []Transition[S]
	dispatching bool

	equal      func(a, b S) bool
	middleware []Middleware[S]
	logger     *slog.Logger
}

// New creates a store holding initial.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		state:   initial,
		initial: initial,
		equal:   Shallow[S],
		logger:  slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, m := range s.middleware {
		s.safeCall("attach", func() { m.Attach(s) })
	}
	return s
}

// Get returns the current state.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current state. It is an alias for Get.
func (s *Store[S]) Snapshot() S {
	return s.Get()
}

// Initial returns the state the store was created with.
func (s *Store[S]) Initial() S {
	return s.initial
}

// Seq returns the sequence number of the last committed transition.
func (s *Store[S]) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Set applies fn to the current state. If the result equals the current
// state, Set does nothing. Otherwise the new state is stored and becomes
// visible to Get before any subscriber or middleware runs.
//
// Set may be called from inside a listener. Such nested changes are queued
// and delivered after the current transition has reached every listener.
// fn runs with the store locked and must not call back into it. If fn
// panics the store is left unchanged and the panic propagates.
//
// A panicking listener propagates out of Set, but middleware still sees the
// transition: a committed state is always persisted and inspected.
func (s *Store[S]) Set(action string, fn func(S) S) {
	s.mu.Lock()
	prev := s.state
	next := s.apply(fn, prev)
	s.commitLocked(action, prev, next)
}

// apply runs fn with s.mu held and releases the lock if fn panics.
func (s *Store[S]) apply(fn func(S) S, prev S) S {
	ok := false
	defer func() {
		if !ok {
			s.mu.Unlock()
		}
	}()
	next := fn(prev)
	ok = true
	return next
}

// Replace stores next as the whole state. It follows the same rules as Set.
func (s *Store[S]) Replace(action string, next S) {
	s.mu.Lock()
	s.commitLocked(action, s.state, next)
}

// commitLocked must be called with s.mu held. It releases it.
func (s *Store[S]) commitLocked(action string, prev, next S) {
	if s.equal(prev, next) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.seq++
	s.pending = append(s.pending, Transition[S]{
		Seq:    s.seq,
		Action: action,
		State:  next,
		Prev:   prev,
		At:     time.Now(),
	})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.mu.Unlock()

	s.dispatch()
}

// dispatch drains pending transitions. A panicking listener leaves the
// remaining transitions queued for the next Set.
func (s *Store[S]) dispatch() {
	done := false
	defer func() {
		if !done {
			s.mu.Lock()
			s.dispatching = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			// Cleared under the same lock that observed the empty queue so a
			// concurrent commit either lands before this or dispatches itself.
			s.dispatching = false
			s.mu.Unlock()
			done = true
			return
		}
		t := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]subscription[S], len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()

		s.deliver(t, subs)
	}
}

// deliver notifies subs of t, then runs middleware. Middleware runs even
// when a listener panics.
func (s *Store[S]) deliver(t Transition[S], subs []subscription[S]) {
	defer func() {
		for _, m := range s.middleware {
			s.safeCall(t.Action, func() { m.Transition(t) })
		}
	}()
	for _, sub := range subs {
		if t.Seq <= sub.since || !s.subscribed(sub.id) {
			continue
		}
		sub.fn(t.State, t.Prev)
	}
}

// subscribed reports whether id is still registered. Listeners removed by an
// earlier listener in the same round are skipped.
func (s *Store[S]) subscribed(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.id == id {
			return true
		}
	}
	return false
}

// Subscribe registers fn for every committed change and returns a function
// that removes it. The returned function is idempotent.
func (s *Store[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	_, unsubscribe = s.subscribeWith(fn)
	return unsubscribe
}

// subscribeWith registers fn and returns the state it was registered
// against. fn receives every transition committed after that state, and
// none before it.
func (s *Store[S]) subscribeWith(fn Listener[S]) (initial S, unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[S]{id: id, fn: fn, since: s.seq})
	initial = s.state
	s.mu.Unlock()

	var once sync.Once
	return initial, func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store[S]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			// Keep order: notification order is subscription order.
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (s *Store[S]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// safeCall runs fn and logs a panic instead of propagating it.
// Middleware is best-effort and must not fail a mutation.
func (s *Store[S]) safeCall(action string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("middleware panic",
				"action", action,
				"panic", fmt.Sprint(r))
		}
	}()
	fn()
}
