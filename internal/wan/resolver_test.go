package wan

import (
	"testing"

	"routerdash/backend/rdashd/pkg/routeros"
)

func TestResolveNoDefaultRoute(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "10.0.0.0/8", Gateway: "10.0.0.1", Active: true},
	}
	if got := Resolve(routes, nil, nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestResolveIgnoresInactiveDefaultRoute(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "192.0.2.1", Active: false},
		{DstAddress: "0.0.0.0/0", Gateway: "192.0.2.1", Active: true, Disabled: true},
	}
	if got := Resolve(routes, nil, nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestResolveLiteralGatewayUsesGatewayStatus(t *testing.T) {
	routes := []routeros.Route{
		{
			DstAddress:    "0.0.0.0/0",
			Gateway:       "192.0.2.1",
			GatewayStatus: "192.0.2.1 reachable via ether2",
			Active:        true,
		},
	}
	got := Resolve(routes, nil, nil)
	if got == nil || got.Interface != "ether2" {
		t.Fatalf("expected ether2, got %+v", got)
	}
	if got.Gateway != "192.0.2.1" {
		t.Fatalf("expected gateway 192.0.2.1, got %q", got.Gateway)
	}
}

func TestResolveLiteralGatewayUsesImmediateGW(t *testing.T) {
	routes := []routeros.Route{
		{
			DstAddress:  "0.0.0.0/0",
			Gateway:     "198.51.100.1",
			ImmediateGW: "198.51.100.1%sfp-sfpplus1",
			Active:      true,
		},
	}
	got := Resolve(routes, nil, nil)
	if got == nil || got.Interface != "sfp-sfpplus1" {
		t.Fatalf("expected sfp-sfpplus1, got %+v", got)
	}
}

func TestResolveLiteralGatewayFallsBackToDefaultPort(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "192.0.2.1", Active: true},
	}
	got := Resolve(routes, nil, nil)
	if got == nil || got.Interface != DefaultPort {
		t.Fatalf("expected %s, got %+v", DefaultPort, got)
	}
}

func TestResolvePPPTunnelReturnsUnderlyingInterface(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "pppoe-out1", Active: true},
	}
	ppp := []routeros.PPPSession{
		{Name: "pppoe-out1", Service: "pppoe", Interface: "ether1", Address: "203.0.113.7"},
	}
	got := Resolve(routes, nil, ppp)
	if got == nil || got.Interface != "ether1" {
		t.Fatalf("expected underlying ether1, got %+v", got)
	}
	if got.Gateway != "203.0.113.7" {
		t.Fatalf("expected tunnel address as gateway, got %q", got.Gateway)
	}
}

func TestResolveDirectInterfaceGateway(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "lte1", Active: true},
	}
	interfaces := []routeros.Interface{
		{Name: "ether1", Type: "ether"},
		{Name: "lte1", Type: "lte"},
	}
	got := Resolve(routes, interfaces, nil)
	if got == nil || got.Interface != "lte1" {
		t.Fatalf("expected lte1, got %+v", got)
	}
}

func TestResolveHeuristicPrefersWANName(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "bridge-up", Active: true},
	}
	interfaces := []routeros.Interface{
		{Name: "bridge-up", Type: "bridge"},
		{Name: "ether5-WAN", Type: "ether"},
	}
	got := Resolve(routes, interfaces, nil)
	if got == nil || got.Interface != "ether5-WAN" {
		t.Fatalf("expected ether5-WAN, got %+v", got)
	}
}

func TestResolveHeuristicFallsBackToFirstPort(t *testing.T) {
	routes := []routeros.Route{
		{DstAddress: "0.0.0.0/0", Gateway: "unknown-gw", Active: true},
	}
	interfaces := []routeros.Interface{
		{Name: "uplink", Type: "ether", DefaultName: "ether1"},
	}
	got := Resolve(routes, interfaces, nil)
	if got == nil || got.Interface != "uplink" {
		t.Fatalf("expected renamed first port, got %+v", got)
	}
}
