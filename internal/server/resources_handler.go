package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"routerdash/backend/rdashd/pkg/httpx"
)

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	key := chi.URLParam(r, "*")
	entry, err := sess.Cache.Get(key)
	if err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

// pollingOptions are the refresh intervals the UI offers.
var pollingOptions = map[int]bool{1000: true, 2000: true, 5000: true, 10000: true, 30000: true}

func (s *Server) handlePolling(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var body struct {
		IntervalMs int `json:"intervalMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !pollingOptions[body.IntervalMs] {
		httpx.WriteError(w, http.StatusBadRequest, "intervalMs must be one of 1000, 2000, 5000, 10000, 30000")
		return
	}
	sess.Cache.SetScale(time.Duration(body.IntervalMs) * time.Millisecond)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"intervalMs": body.IntervalMs})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	m, ready := sess.Capabilities()
	if !ready {
		// Discovery still settling; the frontend polls until ready.
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ready": false})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "capabilities": m})
}

func (s *Server) handleCapabilityRefresh(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.RefreshCapabilities()
	w.WriteHeader(http.StatusAccepted)
}
