// Package routeros is a minimal client for the REST surface of a
// MikroTik-class router. It owns the request contract only: paths, Basic
// auth, response normalization and the error taxonomy. Freshness, retries
// and caching live with the callers.
package routeros

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Resource paths the dashboard depends on.
const (
	PathSystemResource    = "/system/resource"
	PathSystemIdentity    = "/system/identity"
	PathSystemHealth      = "/system/health"
	PathSystemRouterboard = "/system/routerboard"
	PathSystemReboot      = "/system/reboot"
	PathInterface         = "/interface"
	PathEthernet          = "/interface/ethernet"
	PathWireless          = "/interface/wireless"
	PathWifiRegistrations = "/interface/wireless/registration-table"
	PathDHCPLeases        = "/ip/dhcp-server/lease"
	PathIPAddress         = "/ip/address"
	PathIPRoute           = "/ip/route"
	PathFirewallFilter    = "/ip/firewall/filter"
	PathConnections       = "/ip/firewall/connection"
	PathPPPActive         = "/ppp/active"
	PathUsers             = "/user"
	PathUserGroups        = "/user/group"
	PathPing              = "/ping"
)

// Credentials is the username/password pair a session holds. It lives in
// session memory only and must never reach logs or durable storage.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) empty() bool { return c.Username == "" && c.Password == "" }

// Client issues authenticated requests against one device.
type Client struct {
	http    *http.Client
	baseURL string
	creds   Credentials
}

// Options tune transport behavior.
type Options struct {
	Timeout     time.Duration // per-request; default 10s
	InsecureTLS bool          // accept self-signed device certificates
}

func NewClient(baseURL string, creds Credentials, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: transport},
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}
}

// errorBody is the JSON shape non-2xx responses may carry.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

// Do performs one request and maps the outcome onto the error taxonomy:
// 401 -> *AuthError, other non-2xx -> *DeviceError, no response ->
// *TransportError. It never retries and never logs credentials.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, err
		}
		reader = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.creds.empty() {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{Message: readErrorMessage(res.Body)}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := readErrorMessage(res.Body)
		if msg == "" {
			msg = res.Status
		}
		return nil, &DeviceError{Status: res.StatusCode, Message: msg}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// readErrorMessage extracts message/detail fields from an error body, if
// any. A 401 is session-ending regardless of what the body says.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return ""
	}
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if eb.Detail != "" {
		if msg != "" {
			msg += ": " + eb.Detail
		} else {
			msg = eb.Detail
		}
	}
	return msg
}

func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		// Some firmware answers a bare object for one-row tables.
		var single T
		if err2 := json.Unmarshal(raw, &single); err2 == nil {
			return []T{single}, nil
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func getSingleton[T any](ctx context.Context, c *Client, path string) (*T, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	raw = Singleton(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response for %s", path)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &out, nil
}

func (c *Client) SystemResource(ctx context.Context) (*SystemResource, error) {
	return getSingleton[SystemResource](ctx, c, PathSystemResource)
}

func (c *Client) SystemIdentity(ctx context.Context) (*Identity, error) {
	return getSingleton[Identity](ctx, c, PathSystemIdentity)
}

func (c *Client) SystemHealth(ctx context.Context) ([]HealthMetric, error) {
	return getList[HealthMetric](ctx, c, PathSystemHealth)
}

func (c *Client) Interfaces(ctx context.Context) ([]Interface, error) {
	return getList[Interface](ctx, c, PathInterface)
}

func (c *Client) EthernetInterfaces(ctx context.Context) ([]EthernetInterface, error) {
	return getList[EthernetInterface](ctx, c, PathEthernet)
}

func (c *Client) WirelessInterfaces(ctx context.Context) ([]WirelessInterface, error) {
	return getList[WirelessInterface](ctx, c, PathWireless)
}

func (c *Client) WifiRegistrations(ctx context.Context) ([]WifiRegistration, error) {
	return getList[WifiRegistration](ctx, c, PathWifiRegistrations)
}

func (c *Client) DHCPLeases(ctx context.Context) ([]DHCPLease, error) {
	return getList[DHCPLease](ctx, c, PathDHCPLeases)
}

func (c *Client) IPAddresses(ctx context.Context) ([]IPAddress, error) {
	return getList[IPAddress](ctx, c, PathIPAddress)
}

func (c *Client) IPRoutes(ctx context.Context) ([]Route, error) {
	return getList[Route](ctx, c, PathIPRoute)
}

func (c *Client) FirewallRules(ctx context.Context) ([]FirewallRule, error) {
	return getList[FirewallRule](ctx, c, PathFirewallFilter)
}

func (c *Client) Connections(ctx context.Context) ([]Connection, error) {
	return getList[Connection](ctx, c, PathConnections)
}

func (c *Client) PPPSessions(ctx context.Context) ([]PPPSession, error) {
	return getList[PPPSession](ctx, c, PathPPPActive)
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	return getList[User](ctx, c, PathUsers)
}

func (c *Client) UserGroups(ctx context.Context) ([]UserGroup, error) {
	return getList[UserGroup](ctx, c, PathUserGroups)
}

// Ping runs the device-side ping action against address.
func (c *Client) Ping(ctx context.Context, address string, count int) ([]PingResult, error) {
	body := map[string]string{"address": address, "count": fmt.Sprint(count)}
	raw, err := c.Do(ctx, http.MethodPost, PathPing, body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out []PingResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ping response: %w", err)
	}
	return out, nil
}

// Reboot asks the device to restart.
func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodPost, PathSystemReboot, map[string]string{})
	return err
}
