// Package counter is the application state: a single integer with three
// mutations, held in a store.Store.
package counter

import "github.com/vango-dev/counter/pkg/store"

// StorageKey is the key the counter state is persisted under.
const StorageKey = "counter-storage"

// Action labels reported to middleware.
const (
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
	ActionReset     = "reset"
)

// Actions lists every action the counter accepts.
var Actions = []string{ActionIncrement, ActionDecrement, ActionReset}

// State is the persisted counter state.
type State struct {
	Count int `json:"count"`
}

// Counter owns the counter store. Mutate it only through its methods.
type Counter struct {
	store *store.Store[State]
}

// New creates a counter starting at zero. Options are passed to the
// underlying store (middleware such as persistence and devtools).
func New(opts ...store.Option[State]) *Counter {
	return &Counter{store: store.New(State{}, opts...)}
}

// Increment adds one.
func (c *Counter) Increment() {
	c.store.Set(ActionIncrement, func(s State) State {
		s.Count++
		return s
	})
}

// Decrement subtracts one.
func (c *Counter) Decrement() {
	c.store.Set(ActionDecrement, func(s State) State {
		s.Count--
		return s
	})
}

// Reset sets the count to zero. Resetting a zero counter is a no-op.
func (c *Counter) Reset() {
	c.store.Set(ActionReset, func(State) State {
		return State{}
	})
}

// Dispatch runs the named action. It reports false for unknown names.
func (c *Counter) Dispatch(action string) bool {
	switch action {
	case ActionIncrement:
		c.Increment()
	case ActionDecrement:
		c.Decrement()
	case ActionReset:
		c.Reset()
	default:
		return false
	}
	return true
}

// Snapshot returns the current state.
func (c *Counter) Snapshot() State {
	return c.store.Get()
}

// Store returns the underlying store for subscriptions.
func (c *Counter) Store() *store.Store[State] {
	return c.store
}

// Slice is what the counter view reads: the count and the two controls it
// renders. Increment and Decrement are method values of the same Counter,
// so successive slices compare equal under store.Shallow unless Count moves.
type Slice struct {
	Count     int
	Increment func()
	Decrement func()
}

// SelectSlice returns a selector producing the view's Slice.
func SelectSlice(c *Counter) func(State) Slice {
	return func(s State) Slice {
		return Slice{
			Count:     s.Count,
			Increment: c.Increment,
			Decrement: c.Decrement,
		}
	}
}
