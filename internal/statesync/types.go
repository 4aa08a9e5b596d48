// Package statesync implements the State Synchronizer: it holds two
// timestamped per-field stores (one fed by HTTP polling, one by UPnP
// events) and merges them into one coherent MergedState using freshness
// windows, source-priority rules, and the metadata-propagation and
// idle-metadata exceptions described in spec.md §4.3.
package statesync

import "time"

// Source names where a TimestampedField's value came from.
type Source string

const (
	SourceHTTP       Source = "http"
	SourceUPnP       Source = "upnp"
	SourcePropagated Source = "propagated"
)

// TimestampedField is one observed value plus its provenance.
type TimestampedField struct {
	Value     any
	Source    Source
	Timestamp time.Time
}

// metadataFields are the fields eligible for propagation dominance and the
// idle-metadata no-regression exception.
var metadataFields = map[string]bool{
	"title":     true,
	"artist":    true,
	"album":     true,
	"image_url": true,
}

// defaultPreferred and defaultWindow implement the legacy default table
// from spec §4.3 when the active profile specifies no per-field
// preference.
var defaultPreferred = map[string]Source{
	"play_state": SourceUPnP,
	"position_s": SourceUPnP,
	"duration_s": SourceUPnP,
	"volume":     SourceUPnP,
	"muted":      SourceUPnP,
	"title":      SourceHTTP,
	"artist":     SourceHTTP,
	"album":      SourceHTTP,
	"image_url":  SourceHTTP,
	"source":     SourceHTTP,
}

var defaultWindow = map[string]time.Duration{
	"play_state": 5 * time.Second,
	"position_s": 2 * time.Second,
	"duration_s": 0, // untimed: duration rarely changes, always acceptable once known
	"volume":     10 * time.Second,
	"muted":      10 * time.Second,
	"title":      30 * time.Second,
	"artist":     30 * time.Second,
	"album":      30 * time.Second,
	"image_url":  30 * time.Second,
	"source":     60 * time.Second,
}
