package parser

import "github.com/jeromeof/pywiim-sub000/internal/profile"

// wiimTable and arylicTable implement spec.md §6's loop-mode tables. Both
// are accepted for any numeric raw value — unknown values decode to
// {false, off} rather than being rejected (spec §4.5).
var wiimTable = map[int]LoopMode{
	0: {Shuffle: false, Repeat: RepeatAll},
	1: {Shuffle: false, Repeat: RepeatOne},
	2: {Shuffle: true, Repeat: RepeatAll},
	3: {Shuffle: true, Repeat: RepeatOff},
	4: {Shuffle: false, Repeat: RepeatOff},
	// raw=5 is an intentional WiiM no-op slot: it decodes the same as 4
	// and re-encodes to 4, not 5 (see DESIGN.md Open Question decisions).
	5: {Shuffle: false, Repeat: RepeatOff},
}

var arylicTable = map[int]LoopMode{
	0: {Shuffle: false, Repeat: RepeatAll},
	1: {Shuffle: false, Repeat: RepeatOne},
	2: {Shuffle: true, Repeat: RepeatAll},
	3: {Shuffle: true, Repeat: RepeatOff},
	4: {Shuffle: false, Repeat: RepeatOff},
	5: {Shuffle: true, Repeat: RepeatOne},
}

func tableFor(scheme profile.LoopModeScheme) map[int]LoopMode {
	switch scheme {
	case profile.SchemeArylic:
		return arylicTable
	case profile.SchemeWiiM, profile.SchemeLegacy:
		return wiimTable
	default:
		return wiimTable
	}
}

// DecodeLoopMode maps a raw numeric loopmode value to (shuffle, repeat)
// using the scheme's table. Any value outside the table yields
// {shuffle: false, repeat: off} rather than an error.
func DecodeLoopMode(scheme profile.LoopModeScheme, raw int) LoopMode {
	if mode, ok := tableFor(scheme)[raw]; ok {
		return mode
	}
	return LoopMode{Shuffle: false, Repeat: RepeatOff}
}

// EncodeLoopMode is the inverse of DecodeLoopMode: given the desired
// (shuffle, repeat) pair, returns the raw value to send to the device. The
// WiiM scheme's raw=5 slot is never produced by encoding — 4 is returned
// for {false, off} instead (P7). Arylic's raw=5 ({true, one}) has no
// collision in 0-4 and is produced normally.
func EncodeLoopMode(scheme profile.LoopModeScheme, mode LoopMode) int {
	table := tableFor(scheme)
	maxRaw := 4
	if scheme == profile.SchemeArylic {
		maxRaw = 5
	}
	for raw := 0; raw <= maxRaw; raw++ {
		if table[raw] == mode {
			return raw
		}
	}
	return 4
}
