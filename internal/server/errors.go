package server

import (
	"errors"
	"net/http"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/internal/perms"
	"routerdash/backend/rdashd/internal/session"
	"routerdash/backend/rdashd/pkg/httpx"
	"routerdash/backend/rdashd/pkg/routeros"
)

// writeUpstreamError maps the device client's error taxonomy onto HTTP.
// A 401 from the device is terminal for the session: whatever the
// browser was doing, the stored credentials no longer work, so the
// session is destroyed and the cookie cleared before we answer.
func (s *Server) writeUpstreamError(w http.ResponseWriter, sess *session.Session, err error) {
	var authErr *routeros.AuthError
	if errors.As(err, &authErr) || errors.Is(err, cache.ErrClosed) {
		if sess != nil {
			_ = s.sessions.Destroy(sess.ID)
		}
		s.codec.clear(w)
		httpx.WriteTypedError(w, http.StatusUnauthorized, "auth_expired", "device rejected the stored credentials", 0)
		return
	}

	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		httpx.WriteTypedError(w, http.StatusBadGateway, "device_error", devErr.Message, 0)
		return
	}

	var transErr *routeros.TransportError
	if errors.As(err, &transErr) {
		httpx.WriteTypedError(w, http.StatusGatewayTimeout, "device_unreachable", transErr.Error(), 2)
		return
	}

	var permErr *perms.ResolutionError
	if errors.As(err, &permErr) {
		httpx.WriteTypedError(w, http.StatusBadGateway, "permission_unresolved", permErr.Error(), 0)
		return
	}

	if errors.Is(err, cache.ErrUnknownKey) {
		httpx.WriteError(w, http.StatusNotFound, "unknown resource key")
		return
	}

	httpx.WriteError(w, http.StatusInternalServerError, err.Error())
}
