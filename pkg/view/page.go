package view

import (
	"fmt"
	"io"
)

// PageData describes a complete HTML document.
type PageData struct {
	// Title is the page title. Default: "Counter".
	Title string

	// Body is the root node for the page content.
	Body *Node

	// LivePath is the WebSocket path the page script connects to. The
	// script replaces the element with id "counter" with every HTML
	// fragment it receives and sends {"action": "..."} on button clicks.
	// Empty disables the script.
	LivePath string

	// Lang is the html lang attribute. Default: "en".
	Lang string
}

// liveScript keeps the page in sync with the server-side view.
const liveScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + %q);
  ws.onmessage = function (ev) {
    var el = document.getElementById("counter");
    if (el) { el.outerHTML = ev.data; }
  };
  document.addEventListener("click", function (ev) {
    var btn = ev.target.closest("[data-action]");
    if (!btn) { return; }
    ev.preventDefault();
    if (ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify({ action: btn.getAttribute("data-action") }));
    } else {
      fetch("/actions/" + btn.getAttribute("data-action"), { method: "POST" })
        .then(function () { location.reload(); });
    }
  });
})();`

// WritePage renders a complete HTML document to w.
func WritePage(w io.Writer, page PageData) error {
	if page.Title == "" {
		page.Title = "Counter"
	}
	if page.Lang == "" {
		page.Lang = "en"
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(page.Lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  <meta charset=\"utf-8\">\n  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  <title>%s</title>\n</head>\n<body>\n", escapeHTML(page.Title)); err != nil {
		return err
	}

	if err := Render(w, page.Body); err != nil {
		return err
	}

	if page.LivePath != "" {
		if _, err := fmt.Fprintf(w, "\n<script>"+liveScript+"</script>", page.LivePath); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "\n</body>\n</html>\n")
	return err
}

// Page wraps body in a document that stays live over /live.
func Page(body *Node) PageData {
	return PageData{Body: body, LivePath: "/live"}
}
