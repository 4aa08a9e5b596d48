package parser

import "strings"

var playStateAliases = map[string]PlayState{
	"play":           PlayStatePlay,
	"playing":        PlayStatePlay,
	"pause":          PlayStatePause,
	"paused":         PlayStatePause,
	"stop":           PlayStatePause,
	"stopped":        PlayStatePause,
	"none":           PlayStateIdle,
	"load":           PlayStateBuffering,
	"loading":        PlayStateBuffering,
	"transitioning":  PlayStateBuffering,
	"buffering":      PlayStateBuffering,
	// UPnP TransportState values.
	"paused_playback":  PlayStatePause,
	"no_media_present": PlayStateIdle,
}

// NormalizePlayState maps any raw device or UPnP play-state string onto
// the canonical enum. Unrecognized values fall back to idle rather than
// surfacing raw vendor strings to callers.
func NormalizePlayState(raw string) PlayState {
	key := strings.ToLower(strings.TrimSpace(raw))
	if state, ok := playStateAliases[key]; ok {
		return state
	}
	return PlayStateIdle
}
