package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/counter/pkg/view"
)

// liveConn pushes the latest rendering of one mounted view. Renders that
// arrive faster than the client reads are coalesced: only the newest HTML
// is ever pending.
type liveConn struct {
	conn *websocket.Conn
	view *view.CounterView

	mu      sync.Mutex
	pending string
	notify  chan struct{}
	done    chan struct{}
}

// render captures the view's current HTML and wakes the writer. The HTML
// is taken under mu so the last caller always leaves the newest state.
func (lc *liveConn) render() {
	lc.mu.Lock()
	lc.pending = lc.view.HTML()
	lc.mu.Unlock()

	select {
	case lc.notify <- struct{}{}:
	default:
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "error", err)
		s.metrics.RecordWebSocketError("upgrade")
		return
	}

	s.liveMu.Lock()
	s.live[conn] = struct{}{}
	s.liveWG.Add(1)
	s.liveMu.Unlock()
	s.metrics.LiveOpened()

	defer func() {
		conn.Close()
		s.liveMu.Lock()
		delete(s.live, conn)
		s.liveMu.Unlock()
		s.metrics.LiveClosed()
		s.liveWG.Done()
	}()

	lc := &liveConn{
		conn:   conn,
		view:   view.NewCounterView(s.counter),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	lc.view.OnChange(func(*view.Node) { lc.render() })
	lc.view.Mount()
	lc.render()

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		s.liveWriteLoop(lc)
	}()

	s.liveReadLoop(lc)

	lc.view.Unmount()
	close(lc.done)
	writer.Wait()
}

func (s *Server) liveReadLoop(lc *liveConn) {
	lc.conn.SetReadLimit(s.config.MaxMessageSize)
	for {
		_, data, err := lc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Debug("live read error", "error", err)
				s.metrics.RecordWebSocketError("read")
			}
			return
		}

		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("live message decode error", "error", err)
			s.metrics.RecordWebSocketError("decode")
			continue
		}
		if err := dispatchLive(lc.view, s.counter, msg.Action); err != nil {
			s.logger.Debug("live action rejected", "action", msg.Action, "error", err)
			s.metrics.RecordWebSocketError("action")
		}
	}
}

func (s *Server) liveWriteLoop(lc *liveConn) {
	for {
		select {
		case <-lc.done:
			return
		case <-lc.notify:
		}

		lc.mu.Lock()
		html := lc.pending
		lc.mu.Unlock()

		lc.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := lc.conn.WriteMessage(websocket.TextMessage, []byte(html)); err != nil {
			s.logger.Debug("live write failed", "error", err)
			s.metrics.RecordWebSocketError("write")
			// Closing unblocks the read loop, which ends the connection.
			lc.conn.Close()
			return
		}
	}
}
