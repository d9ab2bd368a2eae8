package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/internal/traffic"
	"routerdash/backend/rdashd/pkg/routeros"
)

// fakeDevice is a minimal device REST stub: basic auth, canned JSON per
// path, per-path hit counting.
type fakeDevice struct {
	username string
	password string

	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]string
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	return &fakeDevice{
		username: "admin",
		password: "secret",
		hits:     map[string]int{},
		bodies: map[string]string{
			"/rest/system/identity": `{"name":"lab-router"}`,
			"/rest/user":            `[{"name":"admin","group":"full"}]`,
			"/rest/user/group":      `[{"name":"full","policy":"read,write,reboot,web"}]`,
			"/rest/ip/route":        `[]`,
			"/rest/interface":       `[]`,
			"/rest/ppp/active":      `[]`,
		},
	}
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != d.username || pass != d.password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	d.mu.Lock()
	d.hits[r.URL.Path]++
	body, known := d.bodies[r.URL.Path]
	d.mu.Unlock()
	if !known {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (d *fakeDevice) hitCount(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits[path]
}

func (d *fakeDevice) set(path, body string) {
	d.mu.Lock()
	d.bodies[path] = body
	d.mu.Unlock()
}

// idleTicker never fires, keeping registry tests free of real polling.
type idleTicker struct{ ch chan time.Time }

func (t *idleTicker) C() <-chan time.Time   { return t.ch }
func (t *idleTicker) Reset(d time.Duration) {}
func (t *idleTicker) Stop()                 {}

type testClock struct{ now atomic.Int64 }

func newTestClock() *testClock {
	c := &testClock{}
	c.now.Store(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *testClock) Now() time.Time                       { return time.Unix(0, c.now.Load()) }
func (c *testClock) Advance(d time.Duration)              { c.now.Add(int64(d)) }
func (c *testClock) NewTicker(time.Duration) cache.Ticker { return &idleTicker{ch: make(chan time.Time)} }

func newTestRegistry(t *testing.T, srv *httptest.Server, clock cache.Clock) *Registry {
	t.Helper()
	return NewRegistry(zerolog.Nop(), Config{
		DeviceURL: srv.URL + "/rest",
		IdleTTL:   30 * time.Minute,
	}, clock, nil)
}

func TestCreateRejectsBadCredentials(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	_, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "wrong"})
	var authErr *routeros.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatal("failed login must not leave a session")
	}
}

func TestCreateVerifiesIdentityAndRegistersResources(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID == "" || s.Username != "admin" {
		t.Fatalf("bad session: %+v", s)
	}
	if dev.hitCount("/rest/system/identity") == 0 {
		t.Fatal("login must verify against the identity endpoint")
	}
	if len(s.Cache.Keys()) == 0 {
		t.Fatal("expected resource keys registered")
	}
	got, err := reg.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("get: %v", err)
	}
}

func TestPermissionsDerivedOncePerSession(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	set, err := s.Permissions(context.Background())
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if !set.Write || !set.CanReboot() {
		t.Fatalf("wrong set: %+v", set)
	}
	if _, err := s.Permissions(context.Background()); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if n := dev.hitCount("/rest/user"); n != 1 {
		t.Fatalf("user table fetched %d times, want once per session", n)
	}
}

func TestWANResolvesThroughPPP(t *testing.T) {
	dev := newFakeDevice(t)
	dev.set("/rest/ip/route", `[{"dst-address":"0.0.0.0/0","gateway":"pppoe-out1","active":"true"}]`)
	dev.set("/rest/ppp/active", `[{"name":"pppoe-out1","interface":"ether1","address":"203.0.113.7"}]`)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := s.WAN(context.Background())
	if err != nil {
		t.Fatalf("wan: %v", err)
	}
	if res == nil || res.Interface != "ether1" {
		t.Fatalf("expected ether1 via ppp table, got %+v", res)
	}
}

func TestDestroyClearsEverything(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Permissions(context.Background()); err != nil {
		t.Fatalf("permissions: %v", err)
	}
	s.Engine.SetInterface("ether1")
	s.Engine.Observe("ether1", time.Now(), 0, 0)
	s.Engine.Observe("ether1", time.Now().Add(time.Second), 1000, 1000)

	if err := reg.Destroy(s.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := reg.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Cache.Demand(context.Background(), KeyUsers); !errors.Is(err, cache.ErrClosed) {
		t.Fatalf("cache must be closed, got %v", err)
	}
	if len(s.Engine.Snapshot()) != 0 {
		t.Fatal("traffic window must be cleared at logout")
	}
	if _, ok := s.Capabilities(); ok {
		t.Fatal("capability map must be cleared at logout")
	}
	if err := reg.Destroy(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second destroy: %v", err)
	}
}

func TestLateDiscoveryCompletionIsDropped(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	reg := newTestRegistry(t, srv, newTestClock())
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reg.Destroy(s.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	// A discovery completion racing the logout must not repopulate state.
	s.discover()
	if _, ok := s.Capabilities(); ok {
		t.Fatal("closed session accepted a capability result")
	}
}

func TestMonitorSwitchRecordsHistoryUnderNewInterface(t *testing.T) {
	dev := newFakeDevice(t)
	dev.set("/rest/interface", `[
		{"name":"ether1","type":"ether","rx-byte":"1000","tx-byte":"1000"},
		{"name":"ether2","type":"ether","rx-byte":"5000","tx-byte":"5000"}
	]`)
	srv := httptest.NewServer(dev)
	defer srv.Close()

	history, err := traffic.NewHistory(zerolog.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer history.Close()

	reg := NewRegistry(zerolog.Nop(), Config{
		DeviceURL:   srv.URL + "/rest",
		SampleEvery: 5 * time.Millisecond,
	}, newTestClock(), history)
	defer reg.Close()

	s, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	wide := func(iface string) []traffic.Sample {
		t.Helper()
		out, err := history.Range(iface, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("range %s: %v", iface, err)
		}
		return out
	}
	waitRows := func(iface string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if len(wide(iface)) > 0 {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("no history rows for %s", iface)
	}

	reg.Monitor(s, "ether1")
	waitRows("ether1")

	// The sampling loop survives the switch; rows must follow it.
	reg.Monitor(s, "ether2")
	waitRows("ether2")

	before := len(wide("ether1"))
	time.Sleep(100 * time.Millisecond)
	if after := len(wide("ether1")); after != before {
		t.Fatalf("ether1 rows grew %d -> %d while monitoring ether2", before, after)
	}
}

func TestSweepDestroysIdleSessions(t *testing.T) {
	dev := newFakeDevice(t)
	srv := httptest.NewServer(dev)
	defer srv.Close()
	clock := newTestClock()
	reg := newTestRegistry(t, srv, clock)
	defer reg.Close()

	stale, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, err := reg.Create(context.Background(), routeros.Credentials{Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.Advance(31 * time.Minute)
	reg.Touch(fresh.ID)
	reg.Sweep()

	if _, err := reg.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale session should be swept, got %v", err)
	}
	if _, err := reg.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session must survive: %v", err)
	}
}
