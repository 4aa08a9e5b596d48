// Package player implements the Player entity: a per-device facade over
// Transport, the UPnP Subscriber, and the State Synchronizer, exposing
// typed getters over MergedState and the universal command pattern
// (precondition check, single API call, optimistic update, callback).
package player

import "github.com/jeromeof/pywiim-sub000/internal/parser"

// Role is a device's position in a multiroom group, always derived from
// authoritative device state, never from local bookkeeping.
type Role string

const (
	RoleSolo   Role = "solo"
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

// StateChangeFunc is invoked at most once per Refresh (or command) when any
// MergedState field changed.
type StateChangeFunc func(playerID string, changed map[string]any)

// Status is the canonical snapshot a caller reads off a Player's
// MergedState, mirroring the data model's PlayerStatus.
type Status struct {
	PlayState   parser.PlayState
	PositionS   *int64
	DurationS   *int64
	Volume      int
	Muted       bool
	Title       string
	Artist      string
	Album       string
	ImageURL    string
	Source      string
	SourceName  string
	Shuffle     *bool
	Repeat      *parser.RepeatMode
	LoopModeRaw int
	EQPreset    string
	Codec       string
	SampleRate  int
	BitDepth    int
	BitRate     int
	Role        Role
	GroupID     string
	MasterUUID  string
	MasterIP    string
}
