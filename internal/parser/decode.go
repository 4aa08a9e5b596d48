package parser

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/jeromeof/pywiim-sub000/internal/profile"
)

// DecodeDeviceInfo extracts the identity fields the Profile Registry needs
// from a getStatusEx-shaped response. Missing fields are left zero; the
// registry's detect() tolerates that.
func DecodeDeviceInfo(raw map[string]any) profile.DeviceInfo {
	return profile.DeviceInfo{
		UUID:        stringField(raw, "uuid"),
		Name:        stringField(raw, "DeviceName"),
		Model:       stringField(raw, "project"),
		Firmware:    stringField(raw, "firmware"),
		MAC:         stringField(raw, "MAC"),
		WMRMVersion: stringField(raw, "wmrm_version"),
		SSID:        stringField(raw, "ssid"),
		WiFiChannel: stringField(raw, "WifiChannel"),
		PresetKey:   stringField(raw, "preset_key"),
	}
}

// DecodeStatusFields maps a getPlayerStatusEx-shaped response onto
// MergedState field names, applying the profile's loop-mode scheme and the
// canonical play-state/time/position normalizers.
func DecodeStatusFields(p profile.DeviceProfile, raw map[string]any) map[string]any {
	out := map[string]any{}

	if v := stringField(raw, "status"); v != "" {
		out["play_state"] = string(NormalizePlayState(v))
	}

	durationS := int64(0)
	if v, ok := intField(raw, "totlen"); ok {
		durationS = NormalizeTimeValue(v) / 1 // already seconds after normalize for ms/us inputs
		out["duration_s"] = durationS
	}
	if v, ok := intField(raw, "curpos"); ok {
		out["position_s"] = ClampPosition(NormalizeTimeValue(v), durationS)
	}

	if v, ok := intField(raw, "vol"); ok {
		out["volume"] = int(v)
	}
	if v, ok := intField(raw, "mute"); ok {
		out["muted"] = v != 0
	}

	if v, ok := intField(raw, "loop"); ok {
		mode := DecodeLoopMode(p.LoopModeScheme, int(v))
		out["shuffle"] = mode.Shuffle
		out["repeat"] = string(mode.Repeat)
		out["loop_mode_raw"] = int(v)
	}

	if v, ok := intField(raw, "mode"); ok {
		out["source"] = DecodeModeSource(v)
	} else if v := stringField(raw, "mode"); v != "" {
		out["source"] = NormalizeSourceInput(v)
	}

	if v := stringField(raw, "Title"); v != "" {
		out["title"] = DecodeMetadataText(v)
	}
	if v := stringField(raw, "Artist"); v != "" {
		out["artist"] = DecodeMetadataText(v)
	}
	if v := stringField(raw, "Album"); v != "" {
		out["album"] = DecodeMetadataText(v)
	}

	return out
}

// DecodeMetadataFields maps a getMetaInfo-shaped response onto MergedState
// field names.
func DecodeMetadataFields(raw map[string]any) map[string]any {
	meta, _ := raw["metaData"].(map[string]any)
	if meta == nil {
		meta = raw
	}
	out := map[string]any{}
	if v := stringField(meta, "title"); v != "" {
		out["title"] = DecodeMetadataText(v)
	}
	if v := stringField(meta, "artist"); v != "" {
		out["artist"] = DecodeMetadataText(v)
	}
	if v := stringField(meta, "album"); v != "" {
		out["album"] = DecodeMetadataText(v)
	}
	out["image_url"] = NormalizeCoverArt(stringField(meta, "albumArtURI"))

	if v := stringField(meta, "codec"); v != "" {
		out["codec"] = v
	}
	if v, ok := intField(meta, "sampleRate"); ok {
		out["sample_rate"] = int(v)
	}
	if v, ok := intField(meta, "bitDepth"); ok {
		out["bit_depth"] = int(v)
	}
	if v, ok := intField(meta, "bitRate"); ok {
		out["bit_rate"] = int(v)
	}

	return out
}

// DecodeUPnPFields maps the raw string fields produced by
// upnp.ParseNotifyBody onto MergedState field names and types, applying the
// same normalizers used for HTTP polling so the two stores stay
// comparable.
func DecodeUPnPFields(raw map[string]string) map[string]any {
	out := map[string]any{}

	if v, ok := raw["transport_state"]; ok {
		out["play_state"] = string(NormalizePlayState(v))
	}
	if v, ok := raw["duration"]; ok {
		if secs, ok := parseUPnPTime(v); ok {
			out["duration_s"] = secs
		}
	}
	if v, ok := raw["position"]; ok {
		if secs, ok := parseUPnPTime(v); ok {
			out["position_s"] = secs
		}
	}
	if v, ok := raw["volume"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out["volume"] = n
		}
	}
	if v, ok := raw["muted"]; ok {
		out["muted"] = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := raw["track_metadata"]; ok {
		meta := didlLiteTextFields(v)
		for k, val := range meta {
			out[k] = val
		}
	}

	return out
}

// parseUPnPTime parses a UPnP "H:MM:SS" (or "HH:MM:SS.mmm") duration string
// into whole seconds.
func parseUPnPTime(raw string) (int64, bool) {
	parts := strings.Split(strings.SplitN(raw, ".", 2)[0], ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	s, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + s, true
}

// didlLiteTextFields extracts title/artist/album out of a raw DIDL-Lite
// CurrentTrackMetaData blob when present. Malformed XML yields no fields
// rather than an error, since metadata is supplementary to the transport
// state carried by the same event.
func didlLiteTextFields(didl string) map[string]any {
	var doc struct {
		Item struct {
			Title  string `xml:"title"`
			Artist string `xml:"creator"`
			Album  string `xml:"album"`
			ArtURI string `xml:"albumArtURI"`
		} `xml:"item"`
	}
	if err := xml.Unmarshal([]byte(didl), &doc); err != nil {
		return nil
	}
	out := map[string]any{}
	if doc.Item.Title != "" {
		out["title"] = doc.Item.Title
	}
	if doc.Item.Artist != "" {
		out["artist"] = doc.Item.Artist
	}
	if doc.Item.Album != "" {
		out["album"] = doc.Item.Album
	}
	if doc.Item.ArtURI != "" {
		out["image_url"] = NormalizeCoverArt(doc.Item.ArtURI)
	}
	return out
}

func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

func intField(raw map[string]any, key string) (int64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
