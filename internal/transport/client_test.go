package transport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() profile.DeviceProfile {
	return profile.DeviceProfile{
		Vendor:     "wiim",
		Generation: "gen2",
		Connection: profile.ConnectionPolicy{
			ProtocolPriority: []string{"http"},
			PreferredPorts:   []int{0}, // placeholder, overwritten per-test via Connection.PreferredPorts
			ResponseTimeout:  200 * time.Millisecond,
		},
	}
}

func TestIsNonJSONAllowList(t *testing.T) {
	assert.True(t, isNonJSONAllowed("reboot"))
	assert.True(t, isNonJSONAllowed("setPlayerCmd:switchmode:wifi"))
	assert.False(t, isNonJSONAllowed("getPlayerStatusEx"))
}

func TestParseBodyRejectsMalformedOutsideAllowList(t *testing.T) {
	_, err := parseBody("10.0.0.1", "getPlayerStatusEx", []byte("not json"))
	require.Error(t, err)
}

func TestParseBodyAcceptsOKForAllowListedCommand(t *testing.T) {
	body, err := parseBody("10.0.0.1", "reboot", []byte("OK"))
	require.NoError(t, err)
	assert.Equal(t, "OK", body["raw"])
}

func TestExecuteCachesEndpointPermanently(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"status":"play"}`))
	}))
	defer srv.Close()

	port := serverPort(t, srv)
	p := testProfile()
	p.Connection.PreferredPorts = []int{port}

	c := NewClient("127.0.0.1", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, err := c.Execute(ctx, p, "getPlayerStatusEx")
	require.NoError(t, err)
	assert.Equal(t, "play", body["status"])

	ep, ok := c.cachedEndpoint()
	require.True(t, ok)
	assert.Equal(t, port, ep.Port)

	// second call reuses the cached endpoint without re-probing.
	_, err = c.Execute(ctx, p, "getPlayerStatusEx")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, hits, 2)
}

func TestProbeCandidatesAppendsStandardPairsAfterProfilePreferred(t *testing.T) {
	p := testProfile()
	p.Connection.ProtocolPriority = []string{"https"}
	p.Connection.PreferredPorts = []int{49152}

	candidates := probeCandidates(p, probeOptions{})
	require.NotEmpty(t, candidates)
	assert.Equal(t, "https", candidates[0].Protocol)
	assert.Equal(t, 49152, candidates[0].Port)

	var sawStandard bool
	for _, c := range candidates[1:] {
		if c.Protocol == "http" && c.Port == 8080 {
			sawStandard = true
		}
	}
	assert.True(t, sawStandard, "standard pairs must be tried after a resolved profile's preferred ports fail")
}

func TestReprobeFallsBackToStandardPortAfterProfilePreferredFails(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"status":"play"}`))
	}))
	defer srv.Close()

	standardPort := serverPort(t, srv)
	original := standardPairs
	standardPairs = []struct {
		Protocol string
		Port     int
	}{{"http", standardPort}}
	defer func() { standardPairs = original }()

	p := testProfile()
	p.Connection.ProtocolPriority = []string{"http"}
	p.Connection.PreferredPorts = []int{1} // unreachable: nothing listens there

	c := NewClient("127.0.0.1", nil)
	c.SetEndpoint("http", 1) // stale cached endpoint that a reprobe must discard
	c.Reprobe()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, err := c.Execute(ctx, p, "getPlayerStatusEx")
	require.NoError(t, err)
	assert.Equal(t, "play", body["status"])

	ep, ok := c.cachedEndpoint()
	require.True(t, ok)
	assert.Equal(t, standardPort, ep.Port)
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}
