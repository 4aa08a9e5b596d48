package endpoint

import (
	"testing"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStatusChainDefault(t *testing.T) {
	r := NewResolver()
	chain, err := r.Chain(profile.DeviceProfile{Vendor: "wiim", Generation: "gen2"}, PlayerStatus)
	require.NoError(t, err)
	assert.Equal(t, []string{"getPlayerStatusEx", "getStatusEx", "getPlayerStatus", "getStatus"}, chain)
}

func TestPlayerStatusChainMkIIPrimaryIsStatusExWithLegacyFallback(t *testing.T) {
	r := NewResolver()
	chain, err := r.Chain(profile.DeviceProfile{Vendor: "audio-pro", Generation: "mkii"}, PlayerStatus)
	require.NoError(t, err)
	assert.Equal(t, []string{"getStatusEx", "getPlayerStatus", "getStatus"}, chain)
	assert.NotContains(t, chain, "getPlayerStatusEx")
}

func TestMetadataUnsupportedWhenProfileLacksIt(t *testing.T) {
	r := NewResolver()
	_, err := r.Chain(profile.DeviceProfile{Vendor: "audio-pro", Generation: "original"}, Metadata)
	require.Error(t, err)
	assert.True(t, corerr.IsUnsupported(err))
}

func TestBluetoothHistoryUnsupportedWithoutCapabilityFlag(t *testing.T) {
	r := NewResolver()
	_, err := r.Chain(profile.DeviceProfile{Vendor: "arylic", Generation: "gen2"}, BluetoothHistory)
	require.Error(t, err)
	assert.True(t, corerr.IsUnsupported(err))
}

func TestPresetStationsAlwaysSupported(t *testing.T) {
	r := NewResolver()
	chain, err := r.Chain(profile.DeviceProfile{Vendor: "linkplay", Generation: "generic"}, PresetStations)
	require.NoError(t, err)
	assert.Equal(t, []string{"getPresetInfo"}, chain)
}

func TestChainReturnsACopy(t *testing.T) {
	r := NewResolver()
	p := profile.DeviceProfile{Vendor: "wiim", Generation: "gen2"}
	chain, err := r.Chain(p, PlayerStatus)
	require.NoError(t, err)
	chain[0] = "mutated"

	again, err := r.Chain(p, PlayerStatus)
	require.NoError(t, err)
	assert.Equal(t, "getPlayerStatusEx", again[0])
}
