package parser

import (
	"strconv"
	"strings"
)

// sourceBlacklist lists source ids for which shuffle/repeat getters return
// nil and setters raise UnsupportedOperation (spec §4.6).
var sourceBlacklist = map[string]bool{
	"live-radio":  true,
	"airplay":     true,
	"tunein":      true,
	"iheartradio": true,
}

// ShuffleRepeatUnsupported reports whether shuffle/repeat operations are
// forbidden for the given source id.
func ShuffleRepeatUnsupported(sourceID string, isSlave bool) bool {
	if isSlave {
		return true
	}
	return sourceBlacklist[strings.ToLower(sourceID)]
}

// NormalizeSourceInput accepts hyphen/underscore/space variants of a source
// name and returns the canonical lower-case, hyphenated form used as a
// stable source id internally.
func NormalizeSourceInput(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	lower = strings.ReplaceAll(lower, "_", "-")
	lower = strings.ReplaceAll(lower, " ", "-")
	return lower
}

// modeSourceTable maps the numeric "mode" field LinkPlay/WiiM firmware
// report in getPlayerStatus(Ex) onto the stable source ids used throughout
// this package. mode=0 means no active input and must resolve to a source
// id distinct from any play-state value — idle describes play_state, never
// source.
var modeSourceTable = map[int64]string{
	0:  "none",
	1:  "airplay",
	2:  "dlna",
	10: "network",
	11: "network",
	20: "usb",
	21: "usb",
	31: "bluetooth",
	40: "line-in",
	41: "line-in",
	43: "optical",
	47: "line-in-2",
	51: "usb-disk",
	54: "spotify",
	56: "tidal",
	60: "coaxial",
	99: "multiroom",
}

// DecodeModeSource maps a numeric mode code onto a stable source id.
// Unknown codes fall back to a synthesized "mode-<n>" id rather than
// silently dropping the field.
func DecodeModeSource(mode int64) string {
	if s, ok := modeSourceTable[mode]; ok {
		return s
	}
	return "mode-" + strconv.FormatInt(mode, 10)
}

// ResolveSlaveSourceName replaces the raw "multiroom" source with the
// master device's display name when role is slave, and clears it back to
// empty when the device has reverted to solo (spec §4.5).
func ResolveSlaveSourceName(rawSource, role, masterName string) string {
	if strings.EqualFold(rawSource, "multiroom") {
		if role == "slave" {
			return masterName
		}
		return ""
	}
	return rawSource
}
