package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/internal/capability"
	"routerdash/backend/rdashd/internal/perms"
	"routerdash/backend/rdashd/internal/traffic"
	"routerdash/backend/rdashd/internal/wan"
	"routerdash/backend/rdashd/pkg/routeros"
)

// Session is one authenticated browser's view of the device. It owns the
// credential-bearing client, the resource cache, the traffic engine and
// the derived capability/permission state. Everything here is volatile:
// Destroy wipes it and nothing survives to disk.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time

	Client *routeros.Client
	Cache  *cache.Store
	Engine *traffic.Engine

	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	lastSeen   time.Time
	closed     bool
	generation uint64
	caps       *capability.Map
	permSet    *perms.Set
}

// Touch records activity so the idle janitor leaves the session alone.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) lastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// discover runs capability discovery in the background. The generation
// captured at start guards the write: a logout or an explicit capability
// refresh in between makes this completion a no-op.
func (s *Session) discover() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	s.mu.Unlock()

	m := capability.Discover(s.ctx, s.Client, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		s.logger.Debug().Str("session", s.ID).Msg("discarding stale capability result")
		return
	}
	s.caps = &m
}

// Capabilities returns the discovered capability map; ok is false while
// discovery is still running.
func (s *Session) Capabilities() (capability.Map, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.caps == nil {
		return capability.Map{}, false
	}
	return *s.caps, true
}

// RefreshCapabilities invalidates the cached map and re-runs discovery.
func (s *Session) RefreshCapabilities() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.caps = nil
	s.mu.Unlock()
	go s.discover()
}

// Permissions derives the account's policy set from the device user and
// group tables, fetched once per session.
func (s *Session) Permissions(ctx context.Context) (perms.Set, error) {
	s.mu.Lock()
	if s.permSet != nil {
		set := *s.permSet
		s.mu.Unlock()
		return set, nil
	}
	gen := s.generation
	s.mu.Unlock()

	users, err := demandList[routeros.User](ctx, s.Cache, KeyUsers)
	if err != nil {
		return perms.Set{}, err
	}
	groups, err := demandList[routeros.UserGroup](ctx, s.Cache, KeyUserGroups)
	if err != nil {
		return perms.Set{}, err
	}
	set, err := perms.Derive(s.Username, users, groups)
	if err != nil {
		return perms.Set{}, err
	}

	s.mu.Lock()
	if !s.closed && s.generation == gen {
		s.permSet = &set
	}
	s.mu.Unlock()
	return set, nil
}

// WAN resolves the internet-facing interface from the current route,
// interface and PPP snapshots. Nil means no default route.
func (s *Session) WAN(ctx context.Context) (*wan.Result, error) {
	routes, err := demandList[routeros.Route](ctx, s.Cache, KeyIPRoutes)
	if err != nil {
		return nil, err
	}
	interfaces, err := demandList[routeros.Interface](ctx, s.Cache, KeyInterfaces)
	if err != nil {
		return nil, err
	}
	ppp, err := demandList[routeros.PPPSession](ctx, s.Cache, KeyPPPActive)
	if err != nil {
		return nil, err
	}
	return wan.Resolve(routes, interfaces, ppp), nil
}

// close tears the session down. Idempotent; callers hold no locks.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.caps = nil
	s.permSet = nil
	s.mu.Unlock()

	s.cancel()
	s.Engine.Reset()
	s.Cache.Close()
}

// counterSource adapts the device client to the traffic engine.
type counterSource struct {
	client *routeros.Client
}

func (cs *counterSource) InterfaceCounters(ctx context.Context, name string) (int64, int64, error) {
	interfaces, err := cs.client.Interfaces(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, iface := range interfaces {
		if iface.Name == name {
			return int64(iface.RxByte), int64(iface.TxByte), nil
		}
	}
	return 0, 0, fmt.Errorf("interface %q not found", name)
}
