package parser

import (
	_ "embed"
	"encoding/base64"
	"net/url"
	"strings"
)

//go:embed assets/default_logo.png
var defaultLogoPNG []byte

var placeholderStrings = map[string]bool{
	"":          true,
	"unknown":   true,
	"none":      true,
	"null":      true,
	"undefined": true,
}

// DefaultLogoURL returns the embedded sentinel artwork as a data: URL, used
// whenever a device reports no usable cover art.
func DefaultLogoURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(defaultLogoPNG)
}

// NormalizeCoverArt validates a raw image URL reported by a device,
// rejecting empty/placeholder strings and anything that doesn't parse as an
// absolute URL. It never returns an empty string — absent or invalid input
// yields the embedded sentinel.
func NormalizeCoverArt(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if placeholderStrings[strings.ToLower(trimmed)] {
		return DefaultLogoURL()
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() {
		return DefaultLogoURL()
	}
	return trimmed
}
