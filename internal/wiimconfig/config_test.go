package wiimconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SSDPDiscoveryPasses)
	assert.Equal(t, 60, cfg.PollerIntervalSec)
	assert.True(t, cfg.UPnPEventsEnabled)
	assert.False(t, cfg.DebugServerEnabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.DebugServerAddr)
	assert.Empty(t, cfg.StaticDeviceIPs)
}

func TestLoadReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("SSDP_DISCOVERY_PASSES", "5")
	t.Setenv("STATIC_DEVICE_IPS", "192.168.1.10, 192.168.1.11,")
	t.Setenv("UPNP_EVENTS_ENABLED", "false")
	t.Setenv("POLLER_CRON_EXPR", "*/5 * * * *")
	t.Setenv("DEBUG_SERVER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SSDPDiscoveryPasses)
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.11"}, cfg.StaticDeviceIPs)
	assert.False(t, cfg.UPnPEventsEnabled)
	assert.Equal(t, "*/5 * * * *", cfg.PollerCronExpr)
	assert.True(t, cfg.DebugServerEnabled)
}

func TestLoadRejectsPollerIntervalBelowMinimum(t *testing.T) {
	t.Setenv("POLLER_INTERVAL_SEC", "10")

	_, err := Load()
	require.Error(t, err)
}

func TestUPnPRenewalIntervalConvertsMillisecondsToDuration(t *testing.T) {
	cfg := Config{UPnPRenewalIntervalMs: 30000}
	assert.Equal(t, "30s", cfg.UPnPRenewalInterval().String())
}
