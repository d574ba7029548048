package view

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// voidElements never have children or a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// RenderHTML renders n to an HTML string.
func RenderHTML(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render writes n as HTML to w. Attributes are written in sorted order so
// output is stable.
func Render(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindText:
		_, err := io.WriteString(w, escapeHTML(n.Text))
		return err
	case KindElement:
		return renderElement(w, n)
	default:
		return fmt.Errorf("unknown node kind: %d", n.Kind)
	}
}

func renderElement(w io.Writer, n *Node) error {
	if _, err := io.WriteString(w, "<"+n.Tag); err != nil {
		return err
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, ` %s="%s"`, k, escapeAttr(n.Attrs[k])); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if voidElements[n.Tag] {
		return nil
	}

	for _, c := range n.Children {
		if err := Render(w, c); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</"+n.Tag+">")
	return err
}

var (
	htmlReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	attrReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// escapeHTML escapes text content.
func escapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

// escapeAttr escapes an attribute value, including whitespace that could
// break attribute parsing.
func escapeAttr(s string) string {
	return attrReplacer.Replace(s)
}
