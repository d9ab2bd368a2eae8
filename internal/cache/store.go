// Package cache is the keyed resource cache and poller behind the
// dashboard. Every logical device resource maps to one entry with its own
// freshness policy; polled entries refresh on their own tickers, and the
// store guarantees at most one in-flight fetch per key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc retrieves the current value of one resource from the device.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Policy governs freshness for one key. The three regimes:
//
//   - Every > 0: continuously polled on a ticker.
//   - StaleAfter > 0: fetched on demand, refreshed when older than
//     StaleAfter; TTL bounds how long an unused value may linger.
//   - Session: fetched once and kept until the store is closed at logout,
//     exempt from both timers and TTL expiry.
type Policy struct {
	Every      time.Duration
	StaleAfter time.Duration
	TTL        time.Duration
	Session    bool
}

// Entry is a point-in-time snapshot of one cache slot. Data may be stale;
// Err carries the last transient fetch failure without clearing Data.
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Stale     bool            `json:"stale"`
	Err       string          `json:"error,omitempty"`
	ErrAt     time.Time       `json:"errorAt,omitempty"`
}

type slot struct {
	key    string
	policy Policy
	fetch  FetchFunc

	data      json.RawMessage
	fetchedAt time.Time
	fetched   bool
	lastErr   error
	errAt     time.Time

	inflight bool
	done     chan struct{}
	ticker   Ticker
}

// ErrUnknownKey is returned for keys never registered with the store.
var ErrUnknownKey = errors.New("cache: unknown key")

// ErrClosed is returned when the owning session has been destroyed.
var ErrClosed = errors.New("cache: store closed")

// Store owns the cache slots of one authenticated session.
type Store struct {
	logger   zerolog.Logger
	clock    Clock
	baseline time.Duration

	mu      sync.Mutex
	slots   map[string]*slot
	scale   float64
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an empty store. Baseline is the poll interval the global
// multiplier is relative to (the UI's default refresh selection).
func New(logger zerolog.Logger, clock Clock, baseline time.Duration) *Store {
	if baseline <= 0 {
		baseline = 2 * time.Second
	}
	return &Store{
		logger:   logger.With().Str("component", "resource-cache").Logger(),
		clock:    clock,
		baseline: baseline,
		slots:    map[string]*slot{},
		scale:    1,
	}
}

// Register adds a key. Registering after Start attaches the poll loop
// immediately for polled policies.
func (s *Store) Register(key string, policy Policy, fetch FetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	sl := &slot{key: key, policy: policy, fetch: fetch}
	s.slots[key] = sl
	if s.started && policy.Every > 0 {
		s.startLoopLocked(sl)
	}
}

// Start launches one poll loop per polled key. Stop by calling Close.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	for _, sl := range s.slots {
		if sl.policy.Every > 0 {
			s.startLoopLocked(sl)
		}
	}
}

func (s *Store) startLoopLocked(sl *slot) {
	sl.ticker = s.clock.NewTicker(s.scaledLocked(sl.policy.Every))
	s.wg.Add(1)
	go s.pollLoop(sl)
}

func (s *Store) pollLoop(sl *slot) {
	defer s.wg.Done()
	defer sl.ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sl.ticker.C():
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if sl.inflight {
				// A new tick never queues behind a pending fetch.
				skippedTicks.WithLabelValues(sl.key).Inc()
				s.mu.Unlock()
				continue
			}
			s.kickLocked(sl)
			s.mu.Unlock()
		}
	}
}

// kickLocked starts a background fetch for sl unless one is pending.
func (s *Store) kickLocked(sl *slot) {
	if sl.inflight || s.closed {
		return
	}
	sl.inflight = true
	sl.done = make(chan struct{})
	inFlight.WithLabelValues(sl.key).Inc()
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		raw, err := sl.fetch(ctx)
		s.complete(sl, raw, err)
	}()
}

func (s *Store) complete(sl *slot, raw json.RawMessage, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.inflight = false
	close(sl.done)
	inFlight.WithLabelValues(sl.key).Dec()
	if s.closed {
		// Logout already cleared this store; drop the completion so it
		// cannot repopulate state with stale-session data.
		return
	}
	now := s.clock.Now()
	if err != nil {
		// Stale-but-available: keep the previous data, flag the error.
		sl.lastErr = err
		sl.errAt = now
		fetchTotal.WithLabelValues(sl.key, "error").Inc()
		s.logger.Warn().Str("key", sl.key).Err(err).Msg("fetch failed, serving last-known data")
		return
	}
	sl.data = raw
	sl.fetchedAt = now
	sl.fetched = true
	sl.lastErr = nil
	fetchTotal.WithLabelValues(sl.key, "ok").Inc()
}

// Get returns the last-known entry and triggers a background refresh when
// the policy calls for one. It never blocks on the network.
func (s *Store) Get(key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		return Entry{}, ErrUnknownKey
	}
	if s.needsRefreshLocked(sl) {
		s.kickLocked(sl)
	}
	return s.snapshotLocked(sl), nil
}

// Demand returns a current value, performing a blocking single-flight
// fetch when the cached one is missing or stale. Concurrent callers share
// one request.
func (s *Store) Demand(ctx context.Context, key string) (json.RawMessage, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		sl, ok := s.slots[key]
		if !ok {
			s.mu.Unlock()
			return nil, ErrUnknownKey
		}
		if sl.fetched && !s.needsRefreshLocked(sl) {
			data := sl.data
			s.mu.Unlock()
			return data, nil
		}
		s.kickLocked(sl)
		done := sl.done
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
		}

		s.mu.Lock()
		data, fetched, err := sl.data, sl.fetched, sl.lastErr
		s.mu.Unlock()
		if fetched {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
		// Lost a race with Close; loop once more and let ctx decide.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (s *Store) needsRefreshLocked(sl *slot) bool {
	if sl.inflight {
		return false
	}
	if !sl.fetched {
		return true
	}
	if sl.policy.Session {
		return false
	}
	if sl.policy.StaleAfter > 0 {
		return s.clock.Now().Sub(sl.fetchedAt) > sl.policy.StaleAfter
	}
	return false
}

func (s *Store) snapshotLocked(sl *slot) Entry {
	e := Entry{Key: sl.key, Data: sl.data, FetchedAt: sl.fetchedAt}
	if sl.fetched && sl.policy.StaleAfter > 0 &&
		s.clock.Now().Sub(sl.fetchedAt) > sl.policy.StaleAfter {
		e.Stale = true
	}
	if sl.lastErr != nil {
		e.Err = sl.lastErr.Error()
		e.ErrAt = sl.errAt
	}
	return e
}

// SetScale applies the global polling multiplier: selected/baseline,
// uniform across every polled key. A 2s key under a 10s selection ticks
// every 10s; a 5s key every 25s.
func (s *Store) SetScale(selected time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selected <= 0 {
		s.scale = 1
	} else {
		s.scale = float64(selected) / float64(s.baseline)
	}
	for _, sl := range s.slots {
		if sl.ticker != nil {
			sl.ticker.Reset(s.scaledLocked(sl.policy.Every))
		}
	}
}

func (s *Store) scaledLocked(every time.Duration) time.Duration {
	d := time.Duration(float64(every) * s.scale)
	if d <= 0 {
		d = every
	}
	return d
}

// Prune drops values whose TTL has lapsed. Session-scoped entries are
// exempt; they live until Close.
func (s *Store) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, sl := range s.slots {
		if sl.policy.Session || sl.policy.TTL <= 0 || !sl.fetched {
			continue
		}
		if now.Sub(sl.fetchedAt) > sl.policy.TTL {
			sl.data = nil
			sl.fetched = false
		}
	}
}

// Keys lists the registered resource keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.slots))
	for k := range s.slots {
		out = append(out, k)
	}
	return out
}

// Close stops every poll loop and clears all cached data. In-flight
// fetches finish harmlessly; their completions are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	for _, sl := range s.slots {
		sl.data = nil
		sl.fetched = false
	}
	s.mu.Unlock()
	s.wg.Wait()
}
