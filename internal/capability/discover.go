// Package capability probes the device once per session to learn which
// optional subsystems its firmware exposes and what hardware family it is.
package capability

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/pkg/routeros"
)

// Family classifies the router hardware from its board name.
type Family string

const (
	FamilyUnknown     Family = "unknown"
	FamilyCHR         Family = "CHR"
	FamilyRouterboard Family = "RouterBOARD"
	FamilyX86         Family = "x86"
)

// Feature names one optional subsystem.
type Feature string

const (
	FeatureRouterboard  Feature = "routerboard"
	FeatureWireless     Feature = "wireless"
	FeatureHotspot      Feature = "hotspot"
	FeatureBridge       Feature = "bridge"
	FeatureVPN          Feature = "vpn"
	FeatureCertificates Feature = "certificates"
	FeatureRadius       Feature = "radius"
	FeatureQueues       Feature = "queues"
	FeatureGraphing     Feature = "graphing"
	FeatureDHCP         Feature = "dhcp"
	FeatureDNS          Feature = "dns"
	FeatureFirewall     Feature = "firewall"
	FeatureNAT          Feature = "nat"
	FeatureRouting      Feature = "routing"
	FeatureSystem       Feature = "system"
	FeatureInterfaces   Feature = "interfaces"
)

// Map is the per-session capability record. Built once at login, immutable
// afterwards unless discovery is explicitly re-run.
type Map struct {
	Family       Family           `json:"family"`
	Version      string           `json:"version"`
	Architecture string           `json:"architecture"`
	Features     map[Feature]bool `json:"features"`
}

// Has reports whether the feature probed as present.
func (m Map) Has(f Feature) bool { return m.Features[f] }

// probes are the optional-subsystem endpoints. Any successful response,
// including an empty result set, means the capability is present.
var probes = []struct {
	path    string
	feature Feature
}{
	{routeros.PathSystemRouterboard, FeatureRouterboard},
	{routeros.PathWireless, FeatureWireless},
	{"/ip/hotspot", FeatureHotspot},
	{"/interface/bridge", FeatureBridge},
	{"/interface/vpn", FeatureVPN},
	{"/certificate", FeatureCertificates},
	{"/radius", FeatureRadius},
	{"/queue", FeatureQueues},
	{"/tool/graphing", FeatureGraphing},
	{"/ip/dhcp-server", FeatureDHCP},
	{"/ip/dns", FeatureDNS},
}

// baseline features every supported firmware carries.
func defaultFeatures() map[Feature]bool {
	return map[Feature]bool{
		FeatureFirewall:   true,
		FeatureNAT:        true,
		FeatureRouting:    true,
		FeatureSystem:     true,
		FeatureInterfaces: true,
	}
}

// Discover classifies the router and probes every optional endpoint in
// parallel. A failed probe marks the capability absent and never aborts
// the rest; a failed system-info fetch leaves the family unknown.
func Discover(ctx context.Context, client *routeros.Client, logger zerolog.Logger) Map {
	log := logger.With().Str("component", "capability-discovery").Logger()

	m := Map{Family: FamilyUnknown, Features: defaultFeatures()}

	res, err := client.SystemResource(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("system resource unavailable, family stays unknown")
	} else {
		m.Version = res.Version
		m.Architecture = res.ArchitectureName
		m.Family = classify(res.BoardName)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range probes {
		wg.Add(1)
		go func(path string, feature Feature) {
			defer wg.Done()
			_, err := client.Do(ctx, http.MethodGet, path, nil)
			mu.Lock()
			m.Features[feature] = err == nil
			mu.Unlock()
			if err != nil {
				log.Debug().Str("endpoint", path).Err(err).Msg("probe negative")
			}
		}(p.path, p.feature)
	}
	wg.Wait()

	// Virtualized images cannot expose routerboard hardware no matter what
	// the probe said.
	if m.Family == FamilyCHR {
		m.Features[FeatureRouterboard] = false
	}

	log.Info().
		Str("family", string(m.Family)).
		Str("version", m.Version).
		Msg("discovery complete")
	return m
}

func classify(boardName string) Family {
	switch {
	case boardName == "":
		return FamilyUnknown
	case strings.Contains(boardName, "CHR"):
		return FamilyCHR
	case strings.Contains(boardName, "RouterBOARD"):
		return FamilyRouterboard
	case strings.Contains(boardName, "x86"):
		return FamilyX86
	default:
		return Family(boardName)
	}
}
