// Package view renders the counter as HTML.
//
// A Node tree is built by El and Text, rendered with RenderHTML and driven
// by click handlers attached with OnClick. CounterView is the counter
// component: it subscribes to the counter store through a selector and
// re-renders only when the selected slice changes.
package view

import "strings"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota // <div>, <button>, etc.
	KindText                // Plain text node
)

// Node is a rendered UI node.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    map[string]string
	Children []*Node
	Text     string

	// handlers maps event name ("click") to its handler.
	handlers map[string]func()
}

// Attr is a single attribute.
type Attr struct {
	Key   string
	Value string
}

// A returns an Attr.
func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// EventHandler binds a handler to an event name.
type EventHandler struct {
	Event   string
	Handler func()
}

// OnClick returns a click handler.
func OnClick(fn func()) EventHandler {
	return EventHandler{Event: "click", Handler: fn}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// El creates an element. Arguments may be Attr, EventHandler, *Node or
// string (shorthand for a text child); nil values are skipped.
func El(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag, Attrs: make(map[string]string)}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Attr:
			if v.Key != "" {
				n.Attrs[v.Key] = v.Value
			}
		case EventHandler:
			if v.Handler != nil {
				if n.handlers == nil {
					n.handlers = make(map[string]func())
				}
				n.handlers[v.Event] = v.Handler
			}
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case string:
			n.Children = append(n.Children, Text(v))
		}
	}
	return n
}

// Handler returns the handler bound to event, if any.
func (n *Node) Handler(event string) (func(), bool) {
	if n == nil || n.handlers == nil {
		return nil, false
	}
	fn, ok := n.handlers[event]
	return fn, ok
}

// Find returns the first node in depth-first order for which match is true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// TextContent returns the text nodes under n in document order, one per line.
func TextContent(n *Node) string {
	var parts []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == KindText {
			parts = append(parts, n.Text)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, "\n")
}
