// Package upnp implements the UPnP event subscriber: GENA
// SUBSCRIBE/RENEW/UNSUBSCRIBE against a device's AVTransport and
// RenderingControl services, LastChange XML parsing, and an HTTP-vs-UPnP
// health tracker.
package upnp

import "time"

// ServiceType names a UPnP service this subscriber talks to.
type ServiceType string

const (
	ServiceAVTransport      ServiceType = "AVTransport"
	ServiceRenderingControl ServiceType = "RenderingControl"
)

// Subscription represents one active GENA subscription against a device's
// service.
type Subscription struct {
	SID          string
	DeviceHost   string
	DeviceUUID   string
	EventPath    string
	Service      ServiceType
	CallbackURL  string
	Timeout      int
	SubscribedAt time.Time
	RenewAt      time.Time
	SEQ          int
}

// IsExpiringSoon reports whether the subscription should be renewed now.
func (s *Subscription) IsExpiringSoon() bool {
	return time.Now().After(s.RenewAt)
}

// ManagerConfig configures the subscriber.
type ManagerConfig struct {
	Enabled             bool
	SubscriptionTimeout int // seconds requested on SUBSCRIBE
	RenewalBuffer       int // seconds before expiry to renew
	RenewalInterval     time.Duration
}

// DefaultManagerConfig mirrors the teacher's defaults (spec §4.4 leaves the
// exact numbers unspecified beyond "auto-resubscribes").
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Enabled:             true,
		SubscriptionTimeout: 3600,
		RenewalBuffer:       60,
		RenewalInterval:     30 * time.Second,
	}
}

// Stats reports subscriber activity for observability.
type Stats struct {
	ActiveSubscriptions  int
	EventsReceived       int64
	SubscriptionFailures int64
	RenewalFailures      int64
	LastEventAt          time.Time
}

// Event is a parsed NOTIFY delivered to a caller-supplied handler.
type Event struct {
	DeviceHost string
	DeviceUUID string
	Service    ServiceType
	SEQ        int
	Fields     map[string]string // raw UPnP field name -> raw value
}
