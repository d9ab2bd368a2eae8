// Package session holds the credential-scoped device sessions. A session
// is created by a successful login, lives entirely in memory and is torn
// down by logout, an upstream 401 or the idle janitor. Credentials never
// leave the session object and are never written anywhere durable.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/internal/traffic"
	"routerdash/backend/rdashd/pkg/routeros"
)

// ErrNotFound is returned for unknown or already-destroyed session IDs.
var ErrNotFound = errors.New("session: not found")

// Config carries the knobs the registry needs per device.
type Config struct {
	DeviceURL      string
	InsecureTLS    bool
	RequestTimeout time.Duration
	IdleTTL        time.Duration
	PollBaseline   time.Duration
	WindowSize     int
	SampleEvery    time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.PollBaseline <= 0 {
		c.PollBaseline = 2 * time.Second
	}
	if c.SampleEvery <= 0 {
		c.SampleEvery = 3 * time.Second
	}
	return c
}

// Registry owns every live session plus the janitor that sweeps idle
// ones. History is shared across sessions; it stores derived rates only,
// never anything credential-scoped.
type Registry struct {
	logger  zerolog.Logger
	cfg     Config
	clock   cache.Clock
	history *traffic.History
	cron    *cron.Cron

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a registry. history may be nil to disable traffic
// persistence.
func NewRegistry(logger zerolog.Logger, cfg Config, clock cache.Clock, history *traffic.History) *Registry {
	if clock == nil {
		clock = cache.RealClock()
	}
	return &Registry{
		logger:   logger.With().Str("component", "sessions").Logger(),
		cfg:      cfg.withDefaults(),
		clock:    clock,
		history:  history,
		sessions: map[string]*Session{},
	}
}

// Create verifies the credentials against the device identity endpoint
// and, on success, builds a fully wired session: resource cache started,
// capability discovery kicked off, traffic engine ready. The error
// passes the device client's taxonomy through untouched so a bad
// password surfaces as *routeros.AuthError.
func (r *Registry) Create(ctx context.Context, creds routeros.Credentials) (*Session, error) {
	client := routeros.NewClient(r.cfg.DeviceURL, creds, routeros.Options{
		Timeout:     r.cfg.RequestTimeout,
		InsecureTLS: r.cfg.InsecureTLS,
	})
	if _, err := client.SystemIdentity(ctx); err != nil {
		sessionLogins.WithLabelValues("denied").Inc()
		return nil, err
	}

	now := r.clock.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Username:  creds.Username,
		CreatedAt: now,
		Client:    client,
		logger:    r.logger,
		lastSeen:  now,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.Cache = cache.New(r.logger, r.clock, r.cfg.PollBaseline)
	registerResources(s.Cache, client)
	s.Cache.Start(s.ctx)

	s.Engine = traffic.NewEngine(r.logger, &counterSource{client: client}, r.cfg.WindowSize)

	go s.discover()

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	activeSessions.Inc()
	sessionLogins.WithLabelValues("ok").Inc()
	r.logger.Info().Str("session", s.ID).Str("user", s.Username).Msg("session created")
	return s, nil
}

// Get returns the live session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Touch refreshes the idle timer for id.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.Touch(r.clock.Now())
	}
}

// Monitor selects the interface the session's traffic engine samples and
// makes sure the sampling loop is running. Samples land in the shared
// history store when one is configured. The loop outlives interface
// switches, so the callback reads the engine's current interface at
// record time instead of capturing the name it was started with.
func (r *Registry) Monitor(s *Session, iface string) {
	s.Engine.SetInterface(iface)
	onSample := func(sample traffic.Sample) {
		if r.history == nil {
			return
		}
		name := s.Engine.Interface()
		if name == "" {
			return
		}
		if err := r.history.Record(name, sample); err != nil {
			r.logger.Debug().Err(err).Str("iface", name).Msg("history write failed")
		}
	}
	s.Engine.Run(s.ctx, r.cfg.SampleEvery, onSample)
}

// Destroy is logout: the session disappears from the registry and every
// piece of its state is cleared synchronously. Completions still in
// flight find a closed cache and a bumped generation and drop their
// results.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.close()
	activeSessions.Dec()
	r.logger.Info().Str("session", id).Msg("session destroyed")
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartJanitor schedules the minutely sweep: destroy idle sessions,
// prune expired cache entries on the rest.
func (r *Registry) StartJanitor() error {
	if r.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc("* * * * *", r.Sweep); err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Sweep runs one janitor pass.
func (r *Registry) Sweep() {
	now := r.clock.Now()
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if now.Sub(s.lastSeenAt()) > r.cfg.IdleTTL {
			idle = append(idle, s)
			delete(r.sessions, id)
			continue
		}
		s.Cache.Prune()
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
		activeSessions.Dec()
		sessionsSwept.Inc()
		r.logger.Info().Str("session", s.ID).Str("user", s.Username).Msg("idle session swept")
	}
}

// Close stops the janitor and destroys every session.
func (r *Registry) Close() {
	if r.cron != nil {
		r.cron.Stop()
		r.cron = nil
	}
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range all {
		s.close()
		activeSessions.Dec()
	}
}
