package server

import (
	"encoding/json"
	"net/http"
	"time"

	"routerdash/backend/rdashd/internal/traffic"
	"routerdash/backend/rdashd/pkg/httpx"
)

func (s *Server) handleTrafficWindow(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	// The in-memory window only holds the monitored interface; asking for
	// any other interface yields an empty window, not the wrong one's data.
	if q := r.URL.Query().Get("iface"); q != "" && q != sess.Engine.Interface() {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"interface": q,
			"samples":   []traffic.Sample{},
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"interface": sess.Engine.Interface(),
		"samples":   sess.Engine.Snapshot(),
	})
}

func (s *Server) handleTrafficSelect(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var body struct {
		Interface string `json:"interface"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Interface == "" {
		httpx.WriteError(w, http.StatusBadRequest, "interface required")
		return
	}
	s.sessions.Monitor(sess, body.Interface)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"interface": body.Interface})
}

func (s *Server) handleTrafficHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if s.history == nil {
		httpx.WriteError(w, http.StatusNotFound, "traffic history not configured")
		return
	}
	iface := r.URL.Query().Get("iface")
	if iface == "" {
		iface = sess.Engine.Interface()
	}
	if iface == "" {
		httpx.WriteError(w, http.StatusBadRequest, "iface required")
		return
	}
	now := time.Now().UTC()
	from, to := now.Add(-time.Hour), now
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		to = t
	}
	samples, err := s.history.Range(iface, from, to)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"interface": iface, "samples": samples})
}
