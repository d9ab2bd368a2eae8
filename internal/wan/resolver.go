// Package wan derives the internet-facing interface and gateway from the
// routing table, interface list and active PPP sessions. Pure derivation:
// it holds no state and is recomputed whenever the snapshots change.
package wan

import (
	"net"
	"strings"

	"routerdash/backend/rdashd/pkg/routeros"
)

// Result names the interface carrying the default route and the gateway
// address it points at. Gateway may be empty when the route's gateway is
// an interface name with no address.
type Result struct {
	Interface string `json:"interface"`
	Gateway   string `json:"gateway"`
}

// DefaultPort is the conventional uplink on MikroTik hardware.
const DefaultPort = "ether1"

// physicalTypes are interface types that terminate on actual ports.
var physicalTypes = map[string]bool{
	"ether": true,
	"sfp":   true,
	"wlan":  true,
	"lte":   true,
}

// Resolve picks the WAN interface. The fallback order below is what real
// devices depend on for correct auto-detection; do not reorder it.
//
//  1. Active default route (0.0.0.0/0); none means no WAN.
//  2. Gateway is a literal IP: prefer the interface the device itself
//     reports as carrying the next hop (gateway-status / immediate-gw),
//     else the conventional first port.
//  3. Gateway is a PPP-style tunnel name: resolve to the underlying
//     physical interface through the PPP session table.
//  4. Gateway names a physical interface directly: use it as-is.
//  5. Heuristic scan: a name containing "wan", else the first port.
func Resolve(routes []routeros.Route, interfaces []routeros.Interface, ppp []routeros.PPPSession) *Result {
	route := defaultRoute(routes)
	if route == nil {
		return nil
	}
	gw := strings.TrimSpace(route.Gateway)

	if net.ParseIP(gw) != nil {
		if name := carrierInterface(route); name != "" {
			return &Result{Interface: name, Gateway: gw}
		}
		return &Result{Interface: DefaultPort, Gateway: gw}
	}

	if tunnel := pppSession(ppp, gw); tunnel != nil {
		return &Result{Interface: tunnel.Interface, Gateway: tunnel.Address}
	}

	if iface := findInterface(interfaces, gw); iface != nil && physicalTypes[iface.Type] {
		return &Result{Interface: iface.Name}
	}

	if name := heuristicScan(interfaces); name != "" {
		return &Result{Interface: name}
	}
	return &Result{Interface: DefaultPort}
}

func defaultRoute(routes []routeros.Route) *routeros.Route {
	for i := range routes {
		r := &routes[i]
		if r.DstAddress == "0.0.0.0/0" && bool(r.Active) && !bool(r.Disabled) {
			return r
		}
	}
	return nil
}

// carrierInterface extracts the interface the firmware says the next hop
// is reachable through: "reachable via ether1" in gateway-status, or the
// "ip%iface" form of immediate-gw.
func carrierInterface(route *routeros.Route) string {
	if s := route.GatewayStatus; s != "" {
		const marker = "reachable via "
		if idx := strings.Index(s, marker); idx >= 0 {
			rest := s[idx+len(marker):]
			if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
				rest = rest[:sp]
			}
			if rest != "" {
				return rest
			}
		}
	}
	if ig := route.ImmediateGW; ig != "" {
		if idx := strings.Index(ig, "%"); idx >= 0 && idx+1 < len(ig) {
			return ig[idx+1:]
		}
	}
	return ""
}

func pppSession(ppp []routeros.PPPSession, name string) *routeros.PPPSession {
	if !strings.HasPrefix(name, "pppoe-") && !strings.HasPrefix(name, "ppp-") &&
		!strings.HasPrefix(name, "l2tp-") && !strings.HasPrefix(name, "sstp-") &&
		!strings.HasPrefix(name, "pptp-") {
		return nil
	}
	for i := range ppp {
		if ppp[i].Name == name && ppp[i].Interface != "" {
			return &ppp[i]
		}
	}
	return nil
}

func findInterface(interfaces []routeros.Interface, name string) *routeros.Interface {
	for i := range interfaces {
		if interfaces[i].Name == name {
			return &interfaces[i]
		}
	}
	return nil
}

func heuristicScan(interfaces []routeros.Interface) string {
	for i := range interfaces {
		if strings.Contains(strings.ToLower(interfaces[i].Name), "wan") {
			return interfaces[i].Name
		}
	}
	for i := range interfaces {
		name := interfaces[i].Name
		if interfaces[i].DefaultName == DefaultPort || name == DefaultPort {
			return name
		}
	}
	return ""
}
