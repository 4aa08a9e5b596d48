package upnp

import "regexp"

var (
	transportStateFast = regexp.MustCompile(`TransportState val="([^"]*)"`)
	volumeFast         = regexp.MustCompile(`Volume channel="Master" val="([^"]*)"`)
	muteFast           = regexp.MustCompile(`Mute channel="Master" val="([^"]*)"`)
)

// ParseTransportStateFast extracts TransportState without a full XML
// unmarshal, for the hot path where only play-state matters.
func ParseTransportStateFast(doc string) (string, bool) {
	m := transportStateFast.FindStringSubmatch(doc)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseRenderingControlFast extracts Master-channel volume/mute without a
// full XML unmarshal.
func ParseRenderingControlFast(doc string) (volume string, muted string, ok bool) {
	v := volumeFast.FindStringSubmatch(doc)
	m := muteFast.FindStringSubmatch(doc)
	if v == nil && m == nil {
		return "", "", false
	}
	if v != nil {
		volume = v[1]
	}
	if m != nil {
		muted = m[1]
	}
	return volume, muted, true
}
