// Package endpoint maps logical operation names onto the ordered list of
// concrete device commands that should be tried for a given profile.
package endpoint

import (
	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
)

// Logical endpoint names used throughout the Player/Group layers.
const (
	PlayerStatus     = "player_status"
	Metadata         = "metadata"
	GroupInfo        = "group_info"
	SlaveList        = "slave_list"
	EQPresets        = "eq_presets"
	PresetStations   = "preset_stations"
	AudioOutput      = "audio_output"
	BluetoothHistory = "bluetooth_history"
)

// chain is the ordered list of concrete commands tried for one logical
// endpoint under one profile variant. Index 0 is tried first.
type chain []string

// Resolver maps (profile, logical endpoint) to a concrete command chain.
// It holds no mutable state — pure lookup, resolved fresh on every call so
// that callers never pin a single variant after a transient failure.
type Resolver struct{}

// NewResolver returns a stateless Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Chain returns the ordered concrete commands for a logical endpoint under
// the given profile. It returns UnsupportedOperationError when the profile
// declares no chain for that endpoint — callers must not attempt I/O in
// that case.
func (r *Resolver) Chain(p profile.DeviceProfile, logical string) ([]string, error) {
	c := chainFor(p, logical)
	if len(c) == 0 {
		return nil, &corerr.UnsupportedOperationError{
			Operation: logical,
			Reason:    "no endpoint chain for profile " + p.Vendor + "/" + p.Generation,
		}
	}
	out := make([]string, len(c))
	copy(out, c)
	return out, nil
}

func chainFor(p profile.DeviceProfile, logical string) chain {
	switch logical {
	case PlayerStatus:
		if p.Generation == "mkii" {
			// getPlayerStatusEx is unsupported on this generation;
			// getStatusEx is primary, legacy fallback still applies.
			return chain{"getStatusEx", "getPlayerStatus", "getStatus"}
		}
		return chain{"getPlayerStatusEx", "getStatusEx", "getPlayerStatus", "getStatus"}
	case Metadata:
		if !p.Endpoints.SupportsMetadata {
			return nil
		}
		return chain{"getMetaInfo"}
	case GroupInfo:
		return chain{"getStatusEx"}
	case SlaveList:
		return chain{"multiroom:getSlaveList"}
	case EQPresets:
		if !p.Endpoints.SupportsEQ {
			return nil
		}
		return chain{"EQGetList"}
	case PresetStations:
		return chain{"getPresetInfo"}
	case AudioOutput:
		return chain{"getNewAudioOutputHardwareMode"}
	case BluetoothHistory:
		if !p.Endpoints.SupportsBluetooth {
			return nil
		}
		return chain{"getBTHistory"}
	default:
		return nil
	}
}
