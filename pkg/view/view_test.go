package view_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	cerrors "github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/counter"
	"github.com/vango-dev/counter/pkg/devtools"
	"github.com/vango-dev/counter/pkg/store"
	"github.com/vango-dev/counter/pkg/view"
	"github.com/vango-dev/counter/pkg/vtest"
)

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name string
		node *view.Node
		want string
	}{
		{"text", view.Text("a < b"), "a &lt; b"},
		{"element", view.El("p", "hi"), "<p>hi</p>"},
		{"sorted attrs", view.El("a", view.A("href", "/x"), view.A("class", "c")), `<a class="c" href="/x"></a>`},
		{"attr escaping", view.El("div", view.A("title", "\"q\"\n")), `<div title="&quot;q&quot;&#10;"></div>`},
		{"void", view.El("br"), "<br>"},
		{"nested", view.El("ul", view.El("li", "1"), view.El("li", "2")), "<ul><li>1</li><li>2</li></ul>"},
		{"nil child skipped", view.El("div", (*view.Node)(nil), nil), "<div></div>"},
		{"nil node", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := view.RenderHTML(tt.node)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("RenderHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventHandlers(t *testing.T) {
	clicked := 0
	btn := view.El("button", view.OnClick(func() { clicked++ }), "Go")

	fn, ok := btn.Handler("click")
	if !ok {
		t.Fatal("click handler not attached")
	}
	fn()
	if clicked != 1 {
		t.Errorf("clicked = %d, want 1", clicked)
	}

	// Handlers never leak into markup.
	vtest.ExpectNotContains(t, btn, "click")

	if _, ok := view.El("button", view.OnClick(nil)).Handler("click"); ok {
		t.Error("nil handler should not be attached")
	}
}

func TestTextContent(t *testing.T) {
	n := view.El("div", view.El("h1", "Count: 1"), view.El("button", "Increment"))
	if got := view.TextContent(n); got != "Count: 1\nIncrement" {
		t.Errorf("TextContent = %q", got)
	}
}

func TestCounterView_Markup(t *testing.T) {
	v := view.NewCounterView(counter.New())
	node := v.Render()

	vtest.ExpectContains(t, node, "<h1>Count: 0</h1>")
	vtest.ExpectContains(t, node, ">Increment</button>")
	vtest.ExpectContains(t, node, ">Decrement</button>")
	vtest.ExpectAttribute(t, node, "data-action", "increment")
	vtest.ExpectAttribute(t, node, "data-action", "decrement")
	vtest.ExpectAttribute(t, node, "id", "counter")
	vtest.ExpectElement(t, node, "h1")
	vtest.ExpectText(t, node, "Count: 0\nIncrement\nDecrement")
}

func TestCounterView_EndToEnd(t *testing.T) {
	c := counter.New()
	v := view.NewCounterView(c)
	v.Mount()
	defer v.Unmount()

	if got := v.Text(); got != "Count: 0" {
		t.Fatalf("initial text = %q, want %q", got, "Count: 0")
	}

	for i := 0; i < 3; i++ {
		if err := v.Click(counter.ActionIncrement); err != nil {
			t.Fatal(err)
		}
	}
	if got := v.Text(); got != "Count: 3" {
		t.Errorf("after 3 increments text = %q, want %q", got, "Count: 3")
	}

	if err := v.Click(counter.ActionDecrement); err != nil {
		t.Fatal(err)
	}
	if got := v.Text(); got != "Count: 2" {
		t.Errorf("after decrement text = %q, want %q", got, "Count: 2")
	}

	c.Reset()
	if got := v.Text(); got != "Count: 0" {
		t.Errorf("after reset text = %q, want %q", got, "Count: 0")
	}

	if got := v.Renders(); got != 5 {
		t.Errorf("renders = %d, want 5", got)
	}
}

func TestCounterView_RendersOnlyOnChange(t *testing.T) {
	c := counter.New()
	v := view.NewCounterView(c)
	v.Mount()
	defer v.Unmount()

	// Reset at zero commits nothing, so the slice cannot change.
	c.Reset()
	if v.Renders() != 0 {
		t.Errorf("renders after no-op reset = %d, want 0", v.Renders())
	}

	// A change that returns to the same count between two commits still
	// produces one render per commit.
	c.Increment()
	c.Decrement()
	if v.Renders() != 2 {
		t.Errorf("renders = %d, want 2", v.Renders())
	}
}

type wideState struct {
	Count int
	Other string
}

func TestCounterView_SelectorIgnoresUnrelatedFields(t *testing.T) {
	// The view's selector reads count, increment and decrement. A store
	// with an extra field must not re-render when only that field moves.
	s := store.New(wideState{})
	calls := vtest.Record(t, s, func(w wideState) counter.Slice {
		return counter.Slice{Count: w.Count}
	})

	s.Set("other", func(w wideState) wideState { w.Other = "x"; return w })
	calls.ExpectCount(t, 0)

	s.Set("increment", func(w wideState) wideState { w.Count++; return w })
	calls.ExpectCount(t, 1)
}

func TestCounterView_Unmount(t *testing.T) {
	c := counter.New()
	v := view.NewCounterView(c)

	v.Mount()
	v.Mount()
	if got := c.Store().Len(); got != 1 {
		t.Fatalf("subscribers after double mount = %d, want 1", got)
	}

	v.Unmount()
	if got := c.Store().Len(); got != 0 {
		t.Errorf("subscribers after unmount = %d, want 0", got)
	}
	if v.Mounted() {
		t.Error("Mounted() = true after Unmount")
	}

	c.Increment()
	if v.Renders() != 0 {
		t.Errorf("unmounted view re-rendered %d times", v.Renders())
	}
	v.Unmount()
}

func TestCounterView_MountStartsFromCurrentState(t *testing.T) {
	c := counter.New()
	v := view.NewCounterView(c)

	// The counter moves between construction and mount.
	c.Increment()
	c.Increment()

	v.Mount()
	defer v.Unmount()
	if got := v.Text(); got != "Count: 2" {
		t.Errorf("text after mount = %q, want %q", got, "Count: 2")
	}
	if v.Renders() != 0 {
		t.Errorf("Renders = %d after mount, want 0", v.Renders())
	}

	c.Decrement()
	if got := v.Text(); got != "Count: 1" || v.Renders() != 1 {
		t.Errorf("after decrement: text %q renders %d, want Count: 1 and 1", got, v.Renders())
	}
}

func TestCounterView_NilCounter(t *testing.T) {
	v := view.NewCounterView(nil)
	v.Mount()
	defer v.Unmount()

	if got := v.Text(); got != "Count: 0" {
		t.Errorf("text = %q, want %q", got, "Count: 0")
	}
	if err := v.Click(counter.ActionIncrement); err != nil {
		t.Errorf("Click on nil counter: %v", err)
	}
	if got := v.Text(); got != "Count: 0" {
		t.Errorf("text after click = %q, want %q", got, "Count: 0")
	}
	if v.Mounted() {
		t.Error("view without a counter should not mount")
	}
}

func TestCounterView_UnknownControl(t *testing.T) {
	v := view.NewCounterView(counter.New())
	err := v.Click("explode")
	if err == nil {
		t.Fatal("expected error for unknown control")
	}
	if code := cerrors.Code(err); code != "E300" {
		t.Errorf("code = %q, want E300", code)
	}
}

func TestCounterView_OnChange(t *testing.T) {
	c := counter.New()
	v := view.NewCounterView(c)

	var mu sync.Mutex
	var htmls []string
	v.OnChange(func(n *view.Node) {
		mu.Lock()
		defer mu.Unlock()
		htmls = append(htmls, vtest.RenderToString(n))
	})
	v.Mount()
	defer v.Unmount()

	c.Increment()
	c.Increment()

	mu.Lock()
	defer mu.Unlock()
	if len(htmls) != 2 {
		t.Fatalf("OnChange calls = %d, want 2", len(htmls))
	}
	if !strings.Contains(htmls[1], "Count: 2") {
		t.Errorf("second render = %s", htmls[1])
	}
}

func TestCounterView_WithInspector(t *testing.T) {
	rec := &vtest.Inspector{}
	c := counter.New(store.WithMiddleware(devtools.Middleware[counter.State](rec, devtools.WithName("counter"))))
	v := view.NewCounterView(c)
	v.Mount()
	defer v.Unmount()

	_ = v.Click(counter.ActionIncrement)
	_ = v.Click(counter.ActionDecrement)
	c.Reset() // no-op at zero

	rec.ExpectActions(t, devtools.ActionInit, counter.ActionIncrement, counter.ActionDecrement)
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	v := view.NewCounterView(nil)
	if err := view.WritePage(&buf, view.Page(v.Render())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Counter</title>",
		"<h1>Count: 0</h1>",
		`"/live"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := view.WritePage(&buf, view.PageData{Title: "<x>", Body: view.Text("hi")}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("script rendered without LivePath")
	}
	if !strings.Contains(buf.String(), "<title>&lt;x&gt;</title>") {
		t.Errorf("title not escaped:\n%s", buf.String())
	}
}
