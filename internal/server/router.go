// Package server is the HTTP surface the dashboard frontend talks to.
// Every data route is scoped to the caller's session; the router itself
// holds no device state.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/config"
	"routerdash/backend/rdashd/internal/netcheck"
	"routerdash/backend/rdashd/internal/observability"
	"routerdash/backend/rdashd/internal/session"
	"routerdash/backend/rdashd/internal/traffic"
	"routerdash/backend/rdashd/pkg/httpx"
)

type ctxKey int

const sessionKey ctxKey = iota

type Server struct {
	logger   zerolog.Logger
	cfg      config.Config
	sessions *session.Registry
	history  *traffic.History
	codec    *cookieCodec
}

// New wires the HTTP layer. history may be nil.
func New(logger zerolog.Logger, cfg config.Config, sessions *session.Registry, history *traffic.History) *Server {
	return &Server{
		logger:   logger.With().Str("component", "http").Logger(),
		cfg:      cfg,
		sessions: sessions,
		history:  history,
		codec:    newCookieCodec(cfg.SessionHashKey, cfg.SessionBlockKey, !cfg.DevMode),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(zerologMiddleware(s.logger))

	// Dev CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
	})
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler(nil))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Get("/capabilities", s.handleCapabilities)
			r.Post("/capabilities/refresh", s.handleCapabilityRefresh)
			r.Get("/resources/*", s.handleResource)
			r.Put("/polling", s.handlePolling)
			r.Get("/traffic", s.handleTrafficWindow)
			r.Put("/traffic", s.handleTrafficSelect)
			r.Get("/traffic/history", s.handleTrafficHistory)
			r.Get("/network/wan", s.handleWAN)
			r.Post("/network/check", s.handleNetworkCheck)
			r.Post("/system/reboot", s.handleReboot)
		})
	})
	return r
}

// withSession resolves the cookie to a live session. Anything missing or
// stale answers 401 with a cleared cookie so the frontend returns to the
// login screen.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.codec.read(r)
		if !ok {
			if _, err := r.Cookie(sessionCookieName); err == nil {
				s.codec.clear(w)
			}
			httpx.WriteTypedError(w, http.StatusUnauthorized, "auth_required", "no session", 0)
			return
		}
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.codec.clear(w)
			httpx.WriteTypedError(w, http.StatusUnauthorized, "auth_expired", "session no longer exists", 0)
			return
		}
		s.sessions.Touch(id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}

func (s *Server) checker(sess *session.Session) *netcheck.Checker {
	return netcheck.New(s.logger, sess.Client)
}

// requestTimeout bounds handler-side device calls.
const requestTimeout = 15 * time.Second
