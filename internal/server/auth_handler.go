package server

import (
	"encoding/json"
	"net/http"

	"routerdash/backend/rdashd/pkg/httpx"
	"routerdash/backend/rdashd/pkg/routeros"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username and password required")
		return
	}

	sess, err := s.sessions.Create(r.Context(), routeros.Credentials{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		s.writeUpstreamError(w, nil, err)
		return
	}
	if err := s.codec.write(w, sess.ID); err != nil {
		_ = s.sessions.Destroy(sess.ID)
		httpx.WriteError(w, http.StatusInternalServerError, "cookie encode failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"username":  sess.Username,
		"createdAt": sess.CreatedAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	_ = s.sessions.Destroy(sess.ID)
	s.codec.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	set, err := sess.Permissions(r.Context())
	if err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"username":    sess.Username,
		"permissions": set,
	})
}
