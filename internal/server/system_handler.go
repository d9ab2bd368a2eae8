package server

import (
	"context"
	"net/http"

	"routerdash/backend/rdashd/pkg/httpx"
)

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	set, err := sess.Permissions(ctx)
	if err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	if !set.CanReboot() {
		httpx.WriteTypedError(w, http.StatusForbidden, "forbidden", "account lacks the reboot policy", 0)
		return
	}
	if err := sess.Client.Reboot(ctx); err != nil {
		s.writeUpstreamError(w, sess, err)
		return
	}
	s.logger.Warn().Str("user", sess.Username).Msg("device reboot requested")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rebooting": true})
}
