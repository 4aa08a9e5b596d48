package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk shape for caller-supplied profile overrides,
// for firmware revisions the static table doesn't yet recognize.
type overrideFile struct {
	Profiles []overrideEntry `yaml:"profiles"`
}

type overrideEntry struct {
	Vendor             string            `yaml:"vendor"`
	Generation         string            `yaml:"generation"`
	LoopModeScheme     string            `yaml:"loop_mode_scheme"`
	StateSources       map[string]string `yaml:"state_sources"`
	PreferredPorts     []int             `yaml:"preferred_ports"`
	ProtocolPriority   []string          `yaml:"protocol_priority"`
	RequiresClientCert bool              `yaml:"requires_client_cert"`
	ResponseTimeoutMS  int               `yaml:"response_timeout_ms"`
}

// LoadOverrides parses a YAML file of additional DeviceProfile entries and
// returns them for the caller to register via Registry.AddOverride. It does
// not mutate any Registry itself.
func LoadOverrides(path string) ([]DeviceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile overrides: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profile overrides: %w", err)
	}

	profiles := make([]DeviceProfile, 0, len(file.Profiles))
	for _, e := range file.Profiles {
		sources := make(map[string]StateSourcePreference, len(e.StateSources))
		for field, pref := range e.StateSources {
			sources[field] = StateSourcePreference(pref)
		}

		timeout := time.Duration(e.ResponseTimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 5 * time.Second
		}

		profiles = append(profiles, DeviceProfile{
			Vendor:         e.Vendor,
			Generation:     e.Generation,
			LoopModeScheme: LoopModeScheme(e.LoopModeScheme),
			StateSources:   sources,
			Connection: ConnectionPolicy{
				PreferredPorts:     e.PreferredPorts,
				ProtocolPriority:   e.ProtocolPriority,
				RequiresClientCert: e.RequiresClientCert,
				ResponseTimeout:    timeout,
			},
		})
	}
	return profiles, nil
}
