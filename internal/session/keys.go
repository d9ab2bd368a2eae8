package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"routerdash/backend/rdashd/internal/cache"
	"routerdash/backend/rdashd/pkg/routeros"
)

// Resource keys exposed through /api/v1/resources/{key...}. The key names
// the dashboard view, not the raw device path.
const (
	KeySystemResource    = "system/resource"
	KeySystemHealth      = "system/health"
	KeySystemIdentity    = "system/identity"
	KeyInterfaces        = "interfaces"
	KeyEthernet          = "interfaces/ethernet"
	KeyWireless          = "interfaces/wireless"
	KeyWifiRegistrations = "interfaces/wireless/registrations"
	KeyDHCPLeases        = "dhcp/leases"
	KeyIPAddresses       = "ip/addresses"
	KeyIPRoutes          = "ip/routes"
	KeyFirewallRules     = "firewall/rules"
	KeyConnections       = "firewall/connections"
	KeyPPPActive         = "ppp/active"
	KeyUsers             = "users"
	KeyUserGroups        = "users/groups"
)

const onDemandTTL = 5 * time.Minute

// registerResources wires every dashboard resource into the store.
// Intervals and stale windows follow how volatile each resource is:
// counters every few seconds, configuration on demand with a stale
// window, account tables once per session.
func registerResources(store *cache.Store, client *routeros.Client) {
	list := func(path string) cache.FetchFunc {
		return func(ctx context.Context) (json.RawMessage, error) {
			return client.Do(ctx, http.MethodGet, path, nil)
		}
	}
	singleton := func(path string) cache.FetchFunc {
		return func(ctx context.Context) (json.RawMessage, error) {
			raw, err := client.Do(ctx, http.MethodGet, path, nil)
			if err != nil {
				return nil, err
			}
			return routeros.Singleton(raw), nil
		}
	}

	store.Register(KeySystemResource, cache.Policy{Every: 2 * time.Second}, singleton(routeros.PathSystemResource))
	store.Register(KeySystemHealth, cache.Policy{Every: 5 * time.Second}, list(routeros.PathSystemHealth))
	store.Register(KeyInterfaces, cache.Policy{Every: 3 * time.Second}, list(routeros.PathInterface))
	store.Register(KeyDHCPLeases, cache.Policy{Every: 5 * time.Second}, list(routeros.PathDHCPLeases))
	store.Register(KeyWireless, cache.Policy{Every: 5 * time.Second}, list(routeros.PathWireless))
	store.Register(KeyWifiRegistrations, cache.Policy{Every: 5 * time.Second}, list(routeros.PathWifiRegistrations))
	store.Register(KeyConnections, cache.Policy{Every: 5 * time.Second}, list(routeros.PathConnections))

	store.Register(KeyIPAddresses, cache.Policy{StaleAfter: 30 * time.Second, TTL: onDemandTTL}, list(routeros.PathIPAddress))
	store.Register(KeyPPPActive, cache.Policy{StaleAfter: 30 * time.Second, TTL: onDemandTTL}, list(routeros.PathPPPActive))
	store.Register(KeyIPRoutes, cache.Policy{StaleAfter: time.Minute, TTL: onDemandTTL}, list(routeros.PathIPRoute))
	store.Register(KeyFirewallRules, cache.Policy{StaleAfter: time.Minute, TTL: onDemandTTL}, list(routeros.PathFirewallFilter))
	store.Register(KeySystemIdentity, cache.Policy{StaleAfter: time.Minute, TTL: onDemandTTL}, singleton(routeros.PathSystemIdentity))
	store.Register(KeyEthernet, cache.Policy{StaleAfter: time.Minute, TTL: onDemandTTL}, list(routeros.PathEthernet))

	store.Register(KeyUsers, cache.Policy{Session: true}, list(routeros.PathUsers))
	store.Register(KeyUserGroups, cache.Policy{Session: true}, list(routeros.PathUserGroups))
}

// demandList fetches a cached list resource and decodes it through the
// normalization types.
func demandList[T any](ctx context.Context, store *cache.Store, key string) ([]T, error) {
	raw, err := store.Demand(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
