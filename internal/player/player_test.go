package player

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/jeromeof/pywiim-sub000/internal/transport"
	"github.com/jeromeof/pywiim-sub000/internal/upnp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDevice(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/httpapi.asp", func(w http.ResponseWriter, r *http.Request) {
		cmd := r.URL.Query().Get("command")
		w.Header().Set("Content-Type", "application/json")
		switch cmd {
		case "getPlayerStatusEx", "getStatusEx":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"uuid":     "FF31F09E-TEST",
				"project":  "GenericSpeaker",
				"firmware": "1.0.0",
				"status":   "play",
				"vol":      "55",
				"mute":     "0",
				"loop":     "0",
				"mode":     "wifi",
				"totlen":   "180",
				"curpos":   "10",
				"Title":    "Hello",
				"Artist":   "World",
				"group":    "0",
			})
		case "multiroom:getSlaveList":
			_ = json.NewEncoder(w).Encode(map[string]any{"slave_list": []any{}})
		case "getPresetInfo", "getNewAudioOutputHardwareMode":
			_ = json.NewEncoder(w).Encode(map[string]any{})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	})
	return httptest.NewServer(mux)
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestRefreshPopulatesStatus(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	var lastChanged map[string]any
	p := New("FF31F09E-TEST", "127.0.0.1", registry, xport, func(id string, changed map[string]any) {
		lastChanged = changed
	})

	err := p.Refresh(context.Background())
	require.NoError(t, err)

	status := p.Status()
	assert.Equal(t, "play", string(status.PlayState))
	assert.Equal(t, 55, status.Volume)
	assert.Equal(t, "Hello", status.Title)
	assert.Equal(t, "World", status.Artist)
	assert.Equal(t, RoleSolo, status.Role)
	assert.NotNil(t, lastChanged)
}

func TestRefreshOnlyProbesSlaveListOnFullOrPeriodicRefresh(t *testing.T) {
	var slaveListHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/httpapi.asp", func(w http.ResponseWriter, r *http.Request) {
		cmd := r.URL.Query().Get("command")
		w.Header().Set("Content-Type", "application/json")
		switch cmd {
		case "getPlayerStatusEx", "getStatusEx":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"uuid":     "FF31F09E-TEST",
				"project":  "GenericSpeaker",
				"firmware": "1.0.0",
				"status":   "play",
				"vol":      "55",
				"mute":     "0",
				"loop":     "0",
				"mode":     "wifi",
				"totlen":   "180",
				"curpos":   "10",
				"Title":    "Hello",
				"Artist":   "World",
				"group":    "0",
			})
		case "multiroom:getSlaveList":
			slaveListHits++
			_ = json.NewEncoder(w).Encode(map[string]any{"slave_list": []any{}})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("FF31F09E-TEST", "127.0.0.1", registry, xport, nil)

	require.NoError(t, p.Refresh(context.Background())) // first refresh is always full
	assert.Equal(t, 1, slaveListHits)
	assert.Equal(t, RoleSolo, p.Status().Role)

	require.NoError(t, p.Refresh(context.Background())) // not full, not yet periodic
	assert.Equal(t, 1, slaveListHits, "slave-list probe must not run on every plain status poll")
	assert.Equal(t, RoleSolo, p.Status().Role)
}

func TestPlayPauseToggleViaMediaPlayPause(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("id", "127.0.0.1", registry, xport, nil)
	require.NoError(t, p.Refresh(context.Background()))

	// status is "play" after refresh; toggling should issue pause.
	require.NoError(t, p.MediaPlayPause(context.Background()))
	assert.Equal(t, "pause", string(p.Status().PlayState))
}

func TestSetVolumeValidatesRange(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("id", "127.0.0.1", registry, xport, nil)
	err := p.SetVolume(context.Background(), 150)
	assert.Error(t, err)
}

func TestSlaveCommandWithoutGroupRouteIsInconsistentState(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("id", "127.0.0.1", registry, xport, nil)
	p.role = RoleSlave

	err := p.Play(context.Background())
	assert.Error(t, err)
}

func TestHandleUPnPEventNormalizesTransportState(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("id", "127.0.0.1", registry, xport, nil)
	require.NoError(t, p.Refresh(context.Background()))

	p.HandleUPnPEvent(upnp.Event{
		Fields: map[string]string{
			"transport_state": "PAUSED_PLAYBACK",
			"position":        "0:01:05",
			"duration":        "0:03:30",
		},
	})

	status := p.Status()
	assert.Equal(t, "pause", string(status.PlayState))
	require.NotNil(t, status.PositionS)
	assert.Equal(t, int64(65), *status.PositionS)
	require.NotNil(t, status.DurationS)
	assert.Equal(t, int64(210), *status.DurationS)
}

func TestArtworkResolvesEmbeddedSentinelWithoutNetwork(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()

	registry := profile.NewRegistry()
	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", serverPort(t, srv))

	p := New("id", "127.0.0.1", registry, xport, nil)
	require.NoError(t, p.Refresh(context.Background()))

	data, err := p.Artwork(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
