package discovery

import "strings"

// Verdict is the classification of an SSDP response before any API probe
// is attempted.
type Verdict int

const (
	// VerdictReject means the response matched a known non-LinkPlay
	// vendor signature and must not be probed.
	VerdictReject Verdict = iota
	// VerdictAccept means the response matched a WiiM/Linkplay signature
	// directly and needs no probe.
	VerdictAccept
	// VerdictProbeRequired means the response matched neither list and
	// must answer a player_status probe before being accepted.
	VerdictProbeRequired
)

// denylistSignatures are SERVER/ST substrings of vendors known not to speak
// the LinkPlay HTTP API. Matching here rejects the response outright,
// before any network probe.
var denylistSignatures = []string{
	"sonos",
	"samsung",
	"chromecast",
	"denon-heos",
	"roku",
}

// fastPathSignatures are SERVER/ST substrings that identify a LinkPlay
// device directly. Matching here accepts the candidate without a probe.
var fastPathSignatures = []string{
	"wiim",
	"linkplay",
}

// Classify inspects an SSDP response's SERVER and ST headers and decides
// whether it can be rejected or accepted outright, or whether it requires
// a player_status probe to resolve.
func Classify(resp Response) Verdict {
	haystack := strings.ToLower(resp.Headers["SERVER"] + " " + resp.Headers["ST"])

	for _, sig := range denylistSignatures {
		if strings.Contains(haystack, sig) {
			return VerdictReject
		}
	}
	for _, sig := range fastPathSignatures {
		if strings.Contains(haystack, sig) {
			return VerdictAccept
		}
	}
	return VerdictProbeRequired
}
