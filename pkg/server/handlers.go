package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	cerrors "github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/counter"
	"github.com/vango-dev/counter/pkg/view"
)

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v := view.NewCounterView(s.counter)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.WritePage(w, view.Page(v.Render())); err != nil {
		s.logger.Debug("write page", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.counter.Snapshot())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if !s.counter.Dispatch(action) {
		err := cerrors.New("E300").WithDetail("unknown action " + strconv.Quote(action))
		writeJSON(w, http.StatusNotFound, errorBody{Code: err.Code, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.counter.Snapshot())
}

// liveMessage is a message from a live-view client.
type liveMessage struct {
	Action string `json:"action"`
}

// dispatchLive routes a client action through the view's controls when it
// has one, and to the counter otherwise (reset has no control).
func dispatchLive(v *view.CounterView, c *counter.Counter, action string) error {
	err := v.Click(action)
	if err == nil {
		return nil
	}
	if c.Dispatch(action) {
		return nil
	}
	return err
}
