package player

import "github.com/jeromeof/pywiim-sub000/internal/parser"

// Status reads the current MergedState into a typed snapshot. All getters
// are derived from this single read so a caller always sees a consistent
// view (spec §4.6 "all getters read MergedState").
func (p *Player) Status() Status {
	m := p.sync.Snapshot()

	p.mu.Lock()
	role := p.role
	groupID := p.groupID
	masterUUID := p.masterUUID
	masterIP := p.masterIP
	p.mu.Unlock()

	s := Status{
		PlayState:  parser.PlayState(stringOr(m, "play_state", string(parser.PlayStateIdle))),
		Volume:     intOr(m, "volume", 0),
		Muted:      boolOr(m, "muted", false),
		Title:      stringOr(m, "title", ""),
		Artist:     stringOr(m, "artist", ""),
		Album:      stringOr(m, "album", ""),
		ImageURL:   parser.NormalizeCoverArt(stringOr(m, "image_url", "")),
		Source:     stringOr(m, "source", ""),
		SourceName: stringOr(m, "source", ""),
		Role:       role,
		GroupID:    groupID,
		MasterUUID: masterUUID,
		MasterIP:   masterIP,
	}

	if v, ok := m["loop_mode_raw"].(int); ok {
		s.LoopModeRaw = v
	}
	if raw, ok := m["eq_preset"].(map[string]any); ok {
		if name, ok := raw["status"].(string); ok {
			s.EQPreset = name
		}
	}
	s.Codec = stringOr(m, "codec", "")
	s.SampleRate = intOr(m, "sample_rate", 0)
	s.BitDepth = intOr(m, "bit_depth", 0)
	s.BitRate = intOr(m, "bit_rate", 0)

	if role == RoleSlave {
		masterName := stringOr(m, "source_name", "")
		s.SourceName = parser.ResolveSlaveSourceName(s.Source, string(role), masterName)
	}

	sourceID := s.Source
	if parser.ShuffleRepeatUnsupported(sourceID, role == RoleSlave) {
		s.Shuffle = nil
		s.Repeat = nil
	} else {
		if v, ok := m["shuffle"].(bool); ok {
			s.Shuffle = &v
		}
		if v, ok := m["repeat"].(string); ok {
			rm := parser.RepeatMode(v)
			s.Repeat = &rm
		}
	}

	if v, ok := m["position_s"].(int64); ok {
		s.PositionS = &v
	}
	if v, ok := m["duration_s"].(int64); ok {
		s.DurationS = &v
	}

	return s
}

// AvailableSources returns the device's physical-input set filtered by the
// active profile's capability flags, plus the currently active streaming
// source when one is set.
func (p *Player) AvailableSources() []string {
	prof := p.Profile()
	sources := []string{}
	if prof.Endpoints.SupportsBluetooth {
		sources = append(sources, "bluetooth")
	}
	sources = append(sources, "wifi", "line-in", "optical")
	if active := p.snapshotField("source"); active != "" {
		found := false
		for _, s := range sources {
			if s == active {
				found = true
				break
			}
		}
		if !found {
			sources = append(sources, active)
		}
	}
	return sources
}

func stringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

func intOr(m map[string]any, key string, fallback int) int {
	if v, ok := m[key].(int); ok {
		return v
	}
	return fallback
}

func boolOr(m map[string]any, key string, fallback bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return fallback
}
