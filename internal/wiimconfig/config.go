// Package wiimconfig loads process configuration from environment variables,
// with defaults sane enough that the core runs unconfigured against a LAN.
package wiimconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-wide settings for discovery, transport, UPnP
// subscriptions, the refresh poller, and the debug server. None of this is
// read by the core packages themselves (they take explicit constructor
// arguments) — it exists for whatever caller wires the core together.
type Config struct {
	// Discovery
	SSDPDiscoveryTimeoutMs int
	SSDPDiscoveryPasses    int
	SSDPPassIntervalMs     int
	SSDPProbeTimeoutMs     int
	StaticDeviceIPs        []string

	// Transport
	TransportDialTimeoutMs    int
	TransportResponseTimeoutMs int

	// UPnP event subscription
	UPnPEventsEnabled          bool
	UPnPSubscriptionTimeoutSec int
	UPnPRenewalBufferSec       int
	UPnPRenewalIntervalMs      int

	// Poller
	PollerEnabled     bool
	PollerIntervalSec int
	PollerCronExpr    string

	// Debug/introspection server
	DebugServerEnabled bool
	DebugServerAddr    string
}

// Load reads configuration from environment variables, falling back to
// defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		SSDPDiscoveryTimeoutMs:     envInt("SSDP_DISCOVERY_TIMEOUT_MS", 3000),
		SSDPDiscoveryPasses:        envInt("SSDP_DISCOVERY_PASSES", 3),
		SSDPPassIntervalMs:         envInt("SSDP_PASS_INTERVAL_MS", 2000),
		SSDPProbeTimeoutMs:         envInt("SSDP_PROBE_TIMEOUT_MS", 5000),
		StaticDeviceIPs:            envCSV("STATIC_DEVICE_IPS"),
		TransportDialTimeoutMs:     envInt("TRANSPORT_DIAL_TIMEOUT_MS", 5000),
		TransportResponseTimeoutMs: envInt("TRANSPORT_RESPONSE_TIMEOUT_MS", 5000),
		UPnPEventsEnabled:          envBool("UPNP_EVENTS_ENABLED", true),
		UPnPSubscriptionTimeoutSec: envInt("UPNP_SUBSCRIPTION_TIMEOUT_SEC", 3600),
		UPnPRenewalBufferSec:       envInt("UPNP_RENEWAL_BUFFER_SEC", 60),
		UPnPRenewalIntervalMs:      envInt("UPNP_RENEWAL_INTERVAL_MS", 30000),
		PollerEnabled:              envBool("POLLER_ENABLED", true),
		PollerIntervalSec:          envInt("POLLER_INTERVAL_SEC", 60),
		PollerCronExpr:             envString("POLLER_CRON_EXPR", ""),
		DebugServerEnabled:         envBool("DEBUG_SERVER_ENABLED", false),
		DebugServerAddr:            envString("DEBUG_SERVER_ADDR", "127.0.0.1:9100"),
	}

	if cfg.PollerIntervalSec > 0 && cfg.PollerIntervalSec < 60 {
		return Config{}, fmt.Errorf("wiimconfig: POLLER_INTERVAL_SEC must be >= 60, got %d", cfg.PollerIntervalSec)
	}

	return cfg, nil
}

// UPnPRenewalInterval returns the configured renewal tick as a time.Duration.
func (c Config) UPnPRenewalInterval() time.Duration {
	return time.Duration(c.UPnPRenewalIntervalMs) * time.Millisecond
}

// PollerInterval returns the configured fixed poll period as a time.Duration.
func (c Config) PollerInterval() time.Duration {
	return time.Duration(c.PollerIntervalSec) * time.Second
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
