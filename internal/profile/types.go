// Package profile implements the device profile registry: a static,
// immutable table of vendor/generation capabilities keyed off the
// information a device reports about itself, plus a pure resolver function.
package profile

import "time"

// StateSourcePreference names which timestamped store the Synchronizer
// should prefer for a given canonical field.
type StateSourcePreference string

const (
	SourceHTTP   StateSourcePreference = "http"
	SourceUPnP   StateSourcePreference = "upnp"
	SourceLatest StateSourcePreference = "latest"
)

// LoopModeScheme selects which raw-loopmode decode/encode table a profile
// uses (spec §6).
type LoopModeScheme string

const (
	SchemeWiiM   LoopModeScheme = "wiim"
	SchemeArylic LoopModeScheme = "arylic"
	SchemeLegacy LoopModeScheme = "legacy"
)

// ConnectionPolicy describes how Transport should establish a connection to
// a device of this profile.
type ConnectionPolicy struct {
	PreferredPorts     []int
	ProtocolPriority   []string // "https" before "http", or vice versa
	RequiresClientCert bool
	ResponseTimeout    time.Duration
}

// EndpointFlags records which optional capabilities a device family
// supports; the Endpoint Resolver consults these before building a chain.
type EndpointFlags struct {
	SupportsMetadata     bool
	SupportsEQ           bool
	SupportsAlarm        bool
	SupportsBluetooth    bool
	SupportsEnhancedAuth bool
}

// GroupingPolicy records multiroom-join mechanics that differ by generation.
type GroupingPolicy struct {
	UsesWiFiDirect            bool
	SupportsEnhancedGrouping  bool
}

// DeviceProfile is an immutable value describing everything the core needs
// to talk to one family of LinkPlay-based devices.
type DeviceProfile struct {
	Vendor         string
	Generation     string
	LoopModeScheme LoopModeScheme
	StateSources   map[string]StateSourcePreference
	Connection     ConnectionPolicy
	Endpoints      EndpointFlags
	Grouping       GroupingPolicy
}

// DeviceInfo mirrors spec.md §3's DeviceInfo. Only UUID/Model/Firmware/
// WMRMVersion are inspected by the resolver; the rest travel with it for
// the Group layer's WiFi-Direct join mechanics and the Player layer's
// preset/input-list handling.
type DeviceInfo struct {
	UUID        string
	Name        string
	Model       string
	Firmware    string
	MAC         string
	Vendor      string
	Generation  string
	WMRMVersion string
	SSID        string
	WiFiChannel string
	PresetKey   string
	InputList   []string
}
