package view

import (
	"strconv"
	"sync"

	cerrors "github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/counter"
	"github.com/vango-dev/counter/pkg/store"
)

// CounterView renders the counter and its two controls.
//
// It holds no state of its own beyond the last selected slice. While
// mounted it re-renders when, and only when, the slice selected by
// counter.SelectSlice changes under store.Shallow.
type CounterView struct {
	counter *counter.Counter

	life  sync.Mutex // serializes Mount and Unmount
	unsub func()

	mu       sync.Mutex
	slice    counter.Slice
	renders  int
	onChange func(*Node)
}

// NewCounterView creates a view over c. A nil c is allowed: the view then
// renders the default snapshot and its controls do nothing.
func NewCounterView(c *counter.Counter) *CounterView {
	v := &CounterView{counter: c}
	if c != nil {
		v.slice = counter.SelectSlice(c)(c.Snapshot())
	}
	return v
}

// OnChange registers fn to receive the new tree after every re-render.
// fn runs on the goroutine that committed the transition.
func (v *CounterView) OnChange(fn func(*Node)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Mount subscribes the view to the counter. Mounting twice is a no-op.
func (v *CounterView) Mount() {
	v.life.Lock()
	defer v.life.Unlock()
	if v.counter == nil || v.unsub != nil {
		return
	}

	// The first call carries the selection the subscription starts from.
	// It replaces the slice without counting as a render.
	started := false
	v.unsub = store.Select(v.counter.Store(), counter.SelectSlice(v.counter), func(next, prev counter.Slice) {
		if !started {
			started = true
			v.mu.Lock()
			v.slice = next
			v.mu.Unlock()
			return
		}
		v.update(next, prev)
	}, store.FireImmediately[counter.Slice]())
}

// Unmount releases the subscription.
func (v *CounterView) Unmount() {
	v.life.Lock()
	defer v.life.Unlock()
	if v.unsub != nil {
		v.unsub()
		v.unsub = nil
	}
}

func (v *CounterView) update(next, _ counter.Slice) {
	v.mu.Lock()
	v.slice = next
	v.renders++
	fn := v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(v.Render())
	}
}

// Render builds the current tree.
func (v *CounterView) Render() *Node {
	v.mu.Lock()
	s := v.slice
	v.mu.Unlock()

	return El("div", A("class", "counter"), A("id", "counter"),
		El("h1", "Count: "+strconv.Itoa(s.Count)),
		El("button", A("type", "button"), A("data-action", counter.ActionIncrement),
			OnClick(s.Increment), "Increment"),
		El("button", A("type", "button"), A("data-action", counter.ActionDecrement),
			OnClick(s.Decrement), "Decrement"),
	)
}

// HTML renders the current tree as an HTML fragment.
func (v *CounterView) HTML() string {
	out, _ := RenderHTML(v.Render())
	return out
}

// Click triggers the control labeled by action ("increment" or
// "decrement"). Clicking on a view without a counter does nothing.
func (v *CounterView) Click(action string) error {
	btn := v.Render().Find(func(n *Node) bool {
		return n.Tag == "button" && n.Attrs["data-action"] == action
	})
	if btn == nil {
		return cerrors.New("E300").WithDetail("no control for action " + strconv.Quote(action))
	}
	if fn, ok := btn.Handler("click"); ok {
		fn()
	}
	return nil
}

// Text returns the heading text, for example "Count: 3".
func (v *CounterView) Text() string {
	h := v.Render().Find(func(n *Node) bool { return n.Tag == "h1" })
	return TextContent(h)
}

// Renders returns how many times the view re-rendered because its slice
// changed.
func (v *CounterView) Renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders
}

// Mounted reports whether the view holds a subscription.
func (v *CounterView) Mounted() bool {
	v.life.Lock()
	defer v.life.Unlock()
	return v.unsub != nil
}
