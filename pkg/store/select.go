package store

import "sync"

// SelectOption configures a selector subscription.
type SelectOption[U any] func(*selectConfig[U])

type selectConfig[U any] struct {
	equal           func(a, b U) bool
	fireImmediately bool
}

// WithEqual sets the comparison used to decide whether the selected value
// changed. Default: Shallow.
func WithEqual[U any](eq func(a, b U) bool) SelectOption[U] {
	return func(c *selectConfig[U]) {
		if eq != nil {
			c.equal = eq
		}
	}
}

// FireImmediately calls the callback once on subscribe with the current
// selection as both arguments.
func FireImmediately[U any]() SelectOption[U] {
	return func(c *selectConfig[U]) {
		c.fireImmediately = true
	}
}

// Select subscribes cb to the projection of s through selector. The
// selector runs once immediately and again on every committed change; cb
// is called with (next, prev) only when the projection differs from the
// last one seen by this subscription. The first selection and the
// subscription are taken against the same state, so no change is missed
// between them.
//
// selector must be pure and total. A panicking selector is a programming
// error and is not recovered, neither here nor during Set.
func Select[S, U any](s *Store[S], selector func(S) U, cb func(next, prev U), opts ...SelectOption[U]) (unsubscribe func()) {
	cfg := selectConfig[U]{equal: Shallow[U]}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		mu    sync.Mutex
		last  U
		ready bool
		early *S // latest state seen before ready
	)

	deliver := func(state S) {
		next := selector(state)

		mu.Lock()
		if cfg.equal(last, next) {
			mu.Unlock()
			return
		}
		prev := last
		last = next
		mu.Unlock()

		cb(next, prev)
	}

	initial, unsub := s.subscribeWith(func(state, _ S) {
		mu.Lock()
		if !ready {
			early = &state
			mu.Unlock()
			return
		}
		mu.Unlock()
		deliver(state)
	})

	// The selector runs without any lock held, so it may itself touch the
	// store. Changes that commit meanwhile are held in early and delivered
	// here, in order, before the listener delivers directly.
	subscribed := false
	defer func() {
		if !subscribed {
			unsub()
		}
	}()
	first := selector(initial)
	subscribed = true
	mu.Lock()
	last = first
	mu.Unlock()

	if cfg.fireImmediately {
		cb(first, first)
	}
	for {
		mu.Lock()
		if early == nil {
			ready = true
			mu.Unlock()
			break
		}
		state := *early
		early = nil
		mu.Unlock()
		deliver(state)
	}
	return unsub
}
