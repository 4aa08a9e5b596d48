package statesync

import (
	"sync"
	"time"

	"github.com/jeromeof/pywiim-sub000/internal/profile"
)

// Stats reports per-store read activity for observability (§4.3 DOMAIN+).
type Stats struct {
	HTTPHits       int64
	UPnPHits       int64
	PropagatedHits int64
}

// Synchronizer holds the http_state/upnp_state TimestampedField stores for
// one Player and produces the merged, conflict-resolved view of it.
type Synchronizer struct {
	mu sync.Mutex

	httpState map[string]TimestampedField
	upnpState map[string]TimestampedField

	profile profile.DeviceProfile

	lastMerged map[string]any

	stats Stats

	now func() time.Time
}

// New builds an empty Synchronizer. The zero-value profile (legacy
// defaults) governs merging until SetProfile is called.
func New() *Synchronizer {
	return &Synchronizer{
		httpState:  map[string]TimestampedField{},
		upnpState:  map[string]TimestampedField{},
		lastMerged: map[string]any{},
		now:        time.Now,
	}
}

// SetProfile installs the active DeviceProfile, whose StateSources map
// governs per-field source preference during merge.
func (s *Synchronizer) SetProfile(p profile.DeviceProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// UpdateFromHTTP writes fields into the http_state store, tagging each
// with source (defaulting to "http"; callers pass "propagated" for
// master-to-slave metadata pushes).
func (s *Synchronizer) UpdateFromHTTP(fields map[string]any, source Source) map[string]any {
	if source == "" {
		source = SourceHTTP
	}
	now := s.now()
	s.mu.Lock()
	for field, value := range fields {
		s.httpState[field] = TimestampedField{Value: value, Source: source, Timestamp: now}
	}
	merged := s.mergeLocked()
	s.mu.Unlock()
	return merged
}

// UpdateFromUPnP writes fields into the upnp_state store.
func (s *Synchronizer) UpdateFromUPnP(fields map[string]any) map[string]any {
	now := s.now()
	s.mu.Lock()
	for field, value := range fields {
		s.upnpState[field] = TimestampedField{Value: value, Source: SourceUPnP, Timestamp: now}
	}
	merged := s.mergeLocked()
	s.mu.Unlock()
	return merged
}

// Snapshot returns a copy of the last computed MergedState without
// triggering a new merge.
func (s *Synchronizer) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.lastMerged))
	for k, v := range s.lastMerged {
		out[k] = v
	}
	return out
}

// Stats returns a snapshot of the per-store hit counters.
func (s *Synchronizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// fieldSet returns the union of field names known to either store.
func (s *Synchronizer) fieldSet() map[string]bool {
	fields := map[string]bool{}
	for f := range s.httpState {
		fields[f] = true
	}
	for f := range s.upnpState {
		fields[f] = true
	}
	return fields
}

func (s *Synchronizer) mergeLocked() map[string]any {
	now := s.now()
	merged := make(map[string]any, len(s.lastMerged))

	for field := range s.fieldSet() {
		h, hasH := s.httpState[field]
		u, hasU := s.upnpState[field]

		// Propagation override: dominates unconditionally for metadata
		// fields (rule 6).
		if metadataFields[field] && hasH && h.Source == SourcePropagated {
			merged[field] = h.Value
			s.stats.PropagatedHits++
			continue
		}

		value, chosenSource, ok := s.resolveField(field, h, hasH, u, hasU, now)
		if ok {
			merged[field] = value
			switch chosenSource {
			case SourceHTTP, SourcePropagated:
				s.stats.HTTPHits++
			case SourceUPnP:
				s.stats.UPnPHits++
			}
		}
	}

	// Idle-metadata exception (rule 7): once merged play_state is idle,
	// never let a field resolve to an empty value when we have a prior
	// non-empty merged value for it — keep the last-known value until a
	// source explicitly supplies something new and non-empty.
	if ps, ok := merged["play_state"].(string); ok && ps == "idle" {
		for field := range metadataFields {
			if isEmptyValue(merged[field]) {
				if prior, had := s.lastMerged[field]; had && !isEmptyValue(prior) {
					merged[field] = prior
				}
			}
		}
	}

	s.lastMerged = merged
	return merged
}

func (s *Synchronizer) resolveField(field string, h TimestampedField, hasH bool, u TimestampedField, hasU bool, now time.Time) (any, Source, bool) {
	if !hasH && !hasU {
		return nil, "", false
	}
	if hasH && !hasU {
		return h.Value, h.Source, true
	}
	if hasU && !hasH {
		return u.Value, u.Source, true
	}

	preferred, window := s.preferenceFor(field)

	if preferred == "latest" {
		if u.Timestamp.After(h.Timestamp) {
			return u.Value, u.Source, true
		}
		return h.Value, h.Source, true
	}

	var primary, secondary TimestampedField
	if preferred == SourceHTTP {
		primary, secondary = h, u
	} else {
		primary, secondary = u, h
	}

	primaryFresh := window == 0 || now.Sub(primary.Timestamp) <= window
	if primaryFresh {
		return primary.Value, primary.Source, true
	}

	secondaryFresh := window == 0 || now.Sub(secondary.Timestamp) <= window
	if secondaryFresh {
		return secondary.Value, secondary.Source, true
	}

	// Both stale: tie-break on the most recent timestamp.
	if secondary.Timestamp.After(primary.Timestamp) {
		return secondary.Value, secondary.Source, true
	}
	return primary.Value, primary.Source, true
}

// preferenceFor resolves the (preferred source, freshness window) pair for
// field, consulting the active profile first and falling back to the
// legacy default table.
func (s *Synchronizer) preferenceFor(field string) (Source, time.Duration) {
	if pref, ok := s.profile.StateSources[field]; ok {
		switch pref {
		case profile.SourceHTTP:
			return SourceHTTP, defaultWindow[field]
		case profile.SourceUPnP:
			return SourceUPnP, defaultWindow[field]
		case profile.SourceLatest:
			return "latest", 0
		}
	}
	if pref, ok := defaultPreferred[field]; ok {
		return pref, defaultWindow[field]
	}
	return SourceHTTP, 0
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
