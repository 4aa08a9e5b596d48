package profile

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Registry holds the static profile table plus any caller-supplied
// overrides loaded via LoadOverrides. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	overrides map[string]DeviceProfile // key: vendor|generation
}

// NewRegistry returns a Registry seeded with the six predefined profiles
// and no overrides.
func NewRegistry() *Registry {
	return &Registry{overrides: map[string]DeviceProfile{}}
}

func key(vendor, generation string) string {
	return strings.ToLower(vendor) + "|" + strings.ToLower(generation)
}

// AddOverride merges a caller-supplied profile into the registry, keyed by
// (vendor, generation). It takes precedence over the static table entry
// with the same key.
func (r *Registry) AddOverride(p DeviceProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key(p.Vendor, p.Generation)] = p
}

// Resolve maps a DeviceInfo onto the DeviceProfile that should govern it.
// It never fails: unrecognized devices fall back to the generic LinkPlay
// profile.
func (r *Registry) Resolve(info DeviceInfo) DeviceProfile {
	vendor, generation := detect(info)

	r.mu.RLock()
	if p, ok := r.overrides[key(vendor, generation)]; ok {
		r.mu.RUnlock()
		return p
	}
	r.mu.RUnlock()

	if p, ok := staticTable[key(vendor, generation)]; ok {
		return p
	}
	return genericLinkPlay
}

// detect inspects model name, firmware version, and wmrm_version to assign
// a (vendor, generation) pair. Unknown/missing data yields ("linkplay",
// "generic") which always resolves to genericLinkPlay.
func detect(info DeviceInfo) (vendor, generation string) {
	model := strings.ToLower(info.Model)
	switch {
	case strings.Contains(model, "wiim"):
		vendor = "wiim"
	case strings.Contains(model, "arylic") || strings.Contains(model, "up2stream"):
		vendor = "arylic"
	case strings.Contains(model, "audio pro") || strings.Contains(model, "audiopro") || strings.Contains(model, "a10") || strings.Contains(model, "a26") || strings.Contains(model, "a36") || strings.Contains(model, "a40"):
		vendor = "audio-pro"
	default:
		return "linkplay", "generic"
	}

	if vendor == "audio-pro" {
		switch {
		case strings.Contains(model, "mkii") || strings.Contains(model, "mk2"):
			generation = "mkii"
		case strings.Contains(model, " w") || strings.HasSuffix(model, "-w"):
			generation = "w"
		default:
			generation = "original"
		}
		return vendor, generation
	}

	if info.WMRMVersion == "2.0" || isLegacyFirmware(info.Firmware) {
		return vendor, "gen1"
	}
	return vendor, "gen2"
}

// isLegacyFirmware reports whether firmware < 4.2.8020, the documented
// Gen1/WiFi-Direct cutoff.
func isLegacyFirmware(firmware string) bool {
	parts := strings.FieldsFunc(firmware, func(r rune) bool { return r == '.' })
	if len(parts) < 3 {
		return false
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	if major != 4 {
		return major < 4
	}
	if minor != 2 {
		return minor < 2
	}
	return patch < 8020
}

var (
	wiimProfile = DeviceProfile{
		Vendor:         "wiim",
		Generation:     "gen2",
		LoopModeScheme: SchemeWiiM,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceUPnP,
			"volume":     SourceUPnP,
			"muted":      SourceUPnP,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
			"image_url":  SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{443, 80},
			ProtocolPriority: []string{"https", "http"},
			ResponseTimeout:  5 * time.Second,
		},
		Endpoints: EndpointFlags{SupportsMetadata: true, SupportsEQ: true, SupportsAlarm: true, SupportsBluetooth: true},
		Grouping:  GroupingPolicy{SupportsEnhancedGrouping: true},
	}

	arylicProfile = DeviceProfile{
		Vendor:         "arylic",
		Generation:     "gen2",
		LoopModeScheme: SchemeArylic,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceUPnP,
			"volume":     SourceUPnP,
			"muted":      SourceUPnP,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
			"image_url":  SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{80, 443},
			ProtocolPriority: []string{"http", "https"},
			ResponseTimeout:  5 * time.Second,
		},
		Endpoints: EndpointFlags{SupportsMetadata: true, SupportsEQ: true},
		Grouping:  GroupingPolicy{},
	}

	audioProOriginal = DeviceProfile{
		Vendor:         "audio-pro",
		Generation:     "original",
		LoopModeScheme: SchemeLegacy,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceUPnP,
			"volume":     SourceUPnP,
			"muted":      SourceUPnP,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{80},
			ProtocolPriority: []string{"http"},
			ResponseTimeout:  8 * time.Second,
		},
		Endpoints: EndpointFlags{},
		Grouping:  GroupingPolicy{UsesWiFiDirect: true},
	}

	audioProWGeneration = DeviceProfile{
		Vendor:         "audio-pro",
		Generation:     "w",
		LoopModeScheme: SchemeLegacy,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceUPnP,
			"volume":     SourceHTTP,
			"muted":      SourceHTTP,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{80, 443},
			ProtocolPriority: []string{"http", "https"},
			ResponseTimeout:  6 * time.Second,
		},
		Endpoints: EndpointFlags{SupportsEQ: true},
		Grouping:  GroupingPolicy{},
	}

	audioProMkII = DeviceProfile{
		Vendor:         "audio-pro",
		Generation:     "mkii",
		LoopModeScheme: SchemeLegacy,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceUPnP,
			"volume":     SourceUPnP,
			"muted":      SourceUPnP,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
			"image_url":  SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{443, 80},
			ProtocolPriority: []string{"https", "http"},
			RequiresClientCert: true,
			ResponseTimeout:    10 * time.Second,
		},
		Endpoints: EndpointFlags{SupportsEQ: true, SupportsEnhancedAuth: true},
		Grouping:  GroupingPolicy{SupportsEnhancedGrouping: true},
	}

	genericLinkPlay = DeviceProfile{
		Vendor:         "linkplay",
		Generation:     "generic",
		LoopModeScheme: SchemeLegacy,
		StateSources: map[string]StateSourcePreference{
			"play_state": SourceLatest,
			"volume":     SourceLatest,
			"muted":      SourceLatest,
			"title":      SourceHTTP,
			"artist":     SourceHTTP,
			"album":      SourceHTTP,
		},
		Connection: ConnectionPolicy{
			PreferredPorts:   []int{443, 4443, 8443, 80, 8080},
			ProtocolPriority: []string{"https", "http"},
			ResponseTimeout:  5 * time.Second,
		},
		Endpoints: EndpointFlags{},
		Grouping:  GroupingPolicy{},
	}

	staticTable = map[string]DeviceProfile{
		key("wiim", "gen2"):         wiimProfile,
		key("wiim", "gen1"):         withWiFiDirect(wiimProfile),
		key("arylic", "gen2"):       arylicProfile,
		key("arylic", "gen1"):       withWiFiDirect(arylicProfile),
		key("audio-pro", "original"): audioProOriginal,
		key("audio-pro", "w"):        audioProWGeneration,
		key("audio-pro", "mkii"):     audioProMkII,
	}
)

func withWiFiDirect(p DeviceProfile) DeviceProfile {
	p.Generation = "gen1"
	p.Grouping.UsesWiFiDirect = true
	return p
}
