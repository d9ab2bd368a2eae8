package server

import (
	"context"
	"net/http"

	"routerdash/backend/rdashd/pkg/httpx"
)

func (s *Server) handleWAN(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := sess.WAN(ctx)
	if err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	if res == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"resolved": false})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"resolved": true, "wan": res})
}

func (s *Server) handleNetworkCheck(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// Gateway resolution failing is itself a finding, not a request error.
	gw, err := sess.WAN(ctx)
	if err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	report := s.checker(sess).Run(ctx, gw)
	httpx.WriteJSON(w, http.StatusOK, report)
}
