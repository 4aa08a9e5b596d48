package transport

import "strings"

// nonJSONAllowList is the set of command prefixes that are permitted to
// return a bare "OK" (or empty) body instead of JSON. Growth-only: new
// firmware may extend it (spec.md §9 Design Notes).
var nonJSONAllowList = []string{
	"reboot",
	"setAlarmClock",
	"switchmode",
	"setLoopMode",
	"setPlayerCmd:switchmode",
	"EQLoad",
}

// isNonJSONAllowed reports whether command is permitted to answer with a
// non-JSON "OK" body.
func isNonJSONAllowed(command string) bool {
	for _, prefix := range nonJSONAllowList {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}
