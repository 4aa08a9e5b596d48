package upnp

import (
	"encoding/xml"
	"fmt"
	"html"
	"strings"
)

// propertySet is the outer GENA NOTIFY body envelope.
type propertySet struct {
	XMLName    xml.Name   `xml:"propertyset"`
	Properties []property `xml:"property"`
}

type property struct {
	LastChange string `xml:"LastChange"`
}

type attrVal struct {
	Val string `xml:"val,attr"`
}

type channelAttrVal struct {
	Channel string `xml:"channel,attr"`
	Val     string `xml:"val,attr"`
}

// ParseNotifyBody parses a raw GENA NOTIFY body for the given service and
// returns its raw UPnP field map (e.g. transport_state, duration), which
// parser.DecodeUPnPFields maps to canonical fields for the State
// Synchronizer. An
// empty Fields map with a nil error signals a body with no usable
// state_variables — callers treat this as a possible broken-subscription
// signal (spec §4.4), not an error.
func ParseNotifyBody(service ServiceType, body []byte) (map[string]string, error) {
	var outer propertySet
	if err := xml.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("parse propertyset: %w", err)
	}
	if len(outer.Properties) == 0 {
		return map[string]string{}, nil
	}

	// LastChange content is double-XML-escaped: once for the outer
	// propertyset envelope, once again inside the <Event> document.
	unescaped := html.UnescapeString(outer.Properties[0].LastChange)
	if unescaped == "" {
		return map[string]string{}, nil
	}

	switch service {
	case ServiceAVTransport:
		return parseAVTransportLastChange(unescaped)
	case ServiceRenderingControl:
		return parseRenderingControlLastChange(unescaped)
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}

func parseAVTransportLastChange(doc string) (map[string]string, error) {
	// The <Event> root wraps <InstanceID> directly.
	type eventRoot struct {
		XMLName    xml.Name `xml:"Event"`
		InstanceID struct {
			TransportState       attrVal `xml:"TransportState"`
			CurrentTrackMetaData attrVal `xml:"CurrentTrackMetaData"`
			CurrentTrackDuration attrVal `xml:"CurrentTrackDuration"`
			RelativeTimePosition attrVal `xml:"RelativeTimePosition"`
			AVTransportURI       attrVal `xml:"AVTransportURI"`
		} `xml:"InstanceID"`
	}
	var root eventRoot
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("parse avtransport event: %w", err)
	}

	fields := map[string]string{}
	if v := root.InstanceID.TransportState.Val; v != "" {
		fields["transport_state"] = v
	}
	if v := root.InstanceID.CurrentTrackMetaData.Val; v != "" {
		fields["track_metadata"] = v
	}
	if v := root.InstanceID.CurrentTrackDuration.Val; v != "" {
		fields["duration"] = v
	}
	if v := root.InstanceID.RelativeTimePosition.Val; v != "" {
		fields["position"] = v
	}
	if v := root.InstanceID.AVTransportURI.Val; v != "" {
		fields["source_uri"] = v
	}
	return fields, nil
}

func parseRenderingControlLastChange(doc string) (map[string]string, error) {
	type eventRoot struct {
		XMLName    xml.Name `xml:"Event"`
		InstanceID struct {
			Volume []channelAttrVal `xml:"Volume"`
			Mute   []channelAttrVal `xml:"Mute"`
		} `xml:"InstanceID"`
	}
	var root eventRoot
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("parse renderingcontrol event: %w", err)
	}

	fields := map[string]string{}
	for _, v := range root.InstanceID.Volume {
		if v.Channel == "Master" {
			fields["volume"] = v.Val
		}
	}
	for _, m := range root.InstanceID.Mute {
		if m.Channel == "Master" {
			fields["muted"] = m.Val
		}
	}
	return fields, nil
}

// InferServiceTypeFromPath maps a GENA callback path suffix back to the
// ServiceType that produced it.
func InferServiceTypeFromPath(path string) ServiceType {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "rendering"):
		return ServiceRenderingControl
	case strings.Contains(lower, "avtransport"):
		return ServiceAVTransport
	default:
		return ""
	}
}
