package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/internal/config"
	"routerdash/backend/rdashd/internal/session"
)

// routerStub plays the device REST surface: basic auth plus canned JSON
// bodies keyed by path. Paths without a body answer 404, which is how
// capability probes see an absent feature.
type routerStub struct {
	mu       sync.Mutex
	password string
	bodies   map[string]string
}

func newRouterStub() *routerStub {
	return &routerStub{
		password: "secret",
		bodies: map[string]string{
			"/rest/system/identity":    `{"name":"office-gw"}`,
			"/rest/system/resource":    `{"version":"7.14.2","board-name":"RouterBOARD 5009","architecture-name":"arm64","uptime":"1w2d","cpu-load":"4","total-memory":"1073741824","free-memory":"536870912"}`,
			"/rest/system/routerboard": `{"routerboard":"true"}`,
			"/rest/interface":          `[{"name":"ether1","type":"ether","running":"true","rx-byte":"1000","tx-byte":"2000"}]`,
			"/rest/ip/route":           `[{"dst-address":"0.0.0.0/0","gateway":"pppoe-out1","active":"true"}]`,
			"/rest/ppp/active":         `[{"name":"pppoe-out1","interface":"ether1","address":"203.0.113.7"}]`,
			"/rest/user":               `[{"name":"admin","group":"full"},{"name":"viewer","group":"read"}]`,
			"/rest/user/group":         `[{"name":"full","policy":"read,write,reboot,web"},{"name":"read","policy":"read,web"}]`,
			"/rest/ip/dhcp-server":     `[{"name":"dhcp1"}]`,
			"/rest/ip/dns":             `{"servers":"1.1.1.1"}`,
		},
	}
}

func (d *routerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, pass, ok := r.BasicAuth()
	d.mu.Lock()
	wantPass := d.password
	body, known := d.bodies[r.URL.Path]
	d.mu.Unlock()
	if !ok || pass != wantPass {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !known {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (d *routerStub) setPassword(p string) {
	d.mu.Lock()
	d.password = p
	d.mu.Unlock()
}

// quietTicker never fires; handler tests drive fetches on demand only.
type quietTicker struct{ ch chan time.Time }

func (t *quietTicker) C() <-chan time.Time   { return t.ch }
func (t *quietTicker) Reset(d time.Duration) {}
func (t *quietTicker) Stop()                 {}

type quietClock struct{}

func (quietClock) Now() time.Time { return time.Now() }
func (quietClock) NewTicker(time.Duration) cache.Ticker {
	return &quietTicker{ch: make(chan time.Time)}
}

type testEnv struct {
	device *routerStub
	api    *httptest.Server
	reg    *session.Registry
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	device := newRouterStub()
	deviceSrv := httptest.NewServer(device)
	t.Cleanup(deviceSrv.Close)

	cfg := config.Defaults()
	cfg.DeviceURL = deviceSrv.URL + "/rest"
	cfg.DevMode = true // cookies over plain http
	reg := session.NewRegistry(zerolog.Nop(), session.Config{
		DeviceURL: cfg.DeviceURL,
	}, quietClock{}, nil)
	t.Cleanup(reg.Close)

	srv := New(zerolog.Nop(), cfg, reg, nil)
	api := httptest.NewServer(srv.Routes())
	t.Cleanup(api.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		device: device,
		api:    api,
		reg:    reg,
		client: &http.Client{Jar: jar},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.api.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func login(t *testing.T, e *testEnv, user, pass string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": user, "password": pass,
	})
}

func TestLoginSetsCookieAndBadPasswordIs401(t *testing.T) {
	e := newTestEnv(t)

	res := login(t, e, "admin", "wrong")
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", res.StatusCode)
	}

	res = login(t, e, "admin", "secret")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", res.StatusCode)
	}
	var out struct {
		Username string `json:"username"`
	}
	decode(t, res, &out)
	if out.Username != "admin" {
		t.Fatalf("username = %q", out.Username)
	}
	found := false
	for _, c := range res.Cookies() {
		if c.Name == "rdash_sess" && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("session cookie not set")
	}
	if e.reg.Len() != 1 {
		t.Fatalf("sessions = %d", e.reg.Len())
	}
}

func TestRequestWithoutSessionIs401(t *testing.T) {
	e := newTestEnv(t)
	res := e.do(t, http.MethodGet, "/api/v1/resources/system/resource", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestLoginToLogoutScenario(t *testing.T) {
	e := newTestEnv(t)
	res := login(t, e, "admin", "secret")
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", res.StatusCode)
	}

	// Capability discovery settles in the background.
	deadline := time.Now().Add(3 * time.Second)
	var caps struct {
		Ready        bool `json:"ready"`
		Capabilities struct {
			Family   string          `json:"family"`
			Features map[string]bool `json:"features"`
		} `json:"capabilities"`
	}
	for {
		res = e.do(t, http.MethodGet, "/api/v1/capabilities", nil)
		decode(t, res, &caps)
		if caps.Ready || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !caps.Ready {
		t.Fatal("discovery never settled")
	}
	if caps.Capabilities.Family != "RouterBOARD" {
		t.Fatalf("family = %q", caps.Capabilities.Family)
	}
	if !caps.Capabilities.Features["routerboard"] || !caps.Capabilities.Features["dhcp"] {
		t.Fatalf("features = %+v", caps.Capabilities.Features)
	}
	if caps.Capabilities.Features["wireless"] {
		t.Fatal("probe 404 must read as absent")
	}

	// Resource reads surface cached entries, filling on demand.
	var entry struct {
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	}
	deadline = time.Now().Add(3 * time.Second)
	for {
		res = e.do(t, http.MethodGet, "/api/v1/resources/system/resource", nil)
		decode(t, res, &entry)
		if len(entry.Data) > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if entry.Key != "system/resource" || len(entry.Data) == 0 {
		t.Fatalf("entry = %+v", entry)
	}

	res = e.do(t, http.MethodGet, "/api/v1/resources/no/such/key", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown key status = %d", res.StatusCode)
	}

	// Polling scale.
	res = e.do(t, http.MethodPut, "/api/v1/polling", map[string]int{"intervalMs": 10000})
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("polling: %d", res.StatusCode)
	}
	res = e.do(t, http.MethodPut, "/api/v1/polling", map[string]int{"intervalMs": 1234})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("off-menu interval: %d", res.StatusCode)
	}

	// WAN resolves through the PPP table.
	var wanOut struct {
		Resolved bool `json:"resolved"`
		WAN      struct {
			Interface string `json:"interface"`
		} `json:"wan"`
	}
	res = e.do(t, http.MethodGet, "/api/v1/network/wan", nil)
	decode(t, res, &wanOut)
	if !wanOut.Resolved || wanOut.WAN.Interface != "ether1" {
		t.Fatalf("wan = %+v", wanOut)
	}

	// Logout destroys the session; the cookie is dead afterwards.
	res = e.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: %d", res.StatusCode)
	}
	if e.reg.Len() != 0 {
		t.Fatal("session survived logout")
	}
	res = e.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout me: %d", res.StatusCode)
	}
}

func TestUpstream401DestroysSession(t *testing.T) {
	e := newTestEnv(t)
	res := login(t, e, "admin", "secret")
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", res.StatusCode)
	}

	// Credentials change on the device mid-session.
	e.device.setPassword("rotated")

	res = e.do(t, http.MethodGet, "/api/v1/network/wan", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want session-ending 401", res.StatusCode)
	}
	if e.reg.Len() != 0 {
		t.Fatal("session must be destroyed on upstream 401")
	}
}

func TestRebootRequiresPolicy(t *testing.T) {
	e := newTestEnv(t)
	res := login(t, e, "viewer", "secret")
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", res.StatusCode)
	}
	res = e.do(t, http.MethodPost, "/api/v1/system/reboot", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("read-only reboot status = %d", res.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	res := e.do(t, http.MethodGet, "/healthz", nil)
	var out struct {
		OK bool `json:"ok"`
	}
	decode(t, res, &out)
	if !out.OK {
		t.Fatal("healthz not ok")
	}
}

func TestTrafficWindowHonorsIfaceQuery(t *testing.T) {
	e := newTestEnv(t)
	res := login(t, e, "admin", "secret")
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", res.StatusCode)
	}

	res = e.do(t, http.MethodPut, "/api/v1/traffic", map[string]string{"interface": "ether1"})
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("select interface: %d", res.StatusCode)
	}

	var out struct {
		Interface string            `json:"interface"`
		Samples   []json.RawMessage `json:"samples"`
	}
	res = e.do(t, http.MethodGet, "/api/v1/traffic?iface=ether2", nil)
	decode(t, res, &out)
	if out.Interface != "ether2" {
		t.Fatalf("interface = %q, want the requested one", out.Interface)
	}
	if len(out.Samples) != 0 {
		t.Fatalf("got %d samples for an unmonitored interface", len(out.Samples))
	}

	res = e.do(t, http.MethodGet, "/api/v1/traffic", nil)
	decode(t, res, &out)
	if out.Interface != "ether1" {
		t.Fatalf("interface = %q, want monitored ether1", out.Interface)
	}
}

func TestUndecodableCookieIsClearedWith401(t *testing.T) {
	e := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, e.api.URL+"/api/v1/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-real-session"})
	res, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", res.StatusCode)
	}
	cleared := false
	for _, c := range res.Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("dead cookie was not cleared")
	}
}
