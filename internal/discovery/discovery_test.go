package discovery

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/jeromeof/pywiim-sub000/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRejectsDenylistedVendors(t *testing.T) {
	cases := []Response{
		{Headers: map[string]string{"SERVER": "Linux UPnP/1.0 Sonos/60.1"}},
		{Headers: map[string]string{"SERVER": "SEC_SAMSUNG/1.0"}},
		{Headers: map[string]string{"ST": "urn:dial-multiscreen-org:service:dial:1", "SERVER": "Chromecast"}},
		{Headers: map[string]string{"SERVER": "POSIX, UPnP/1.0 Denon-Heos/1.0"}},
		{Headers: map[string]string{"SERVER": "Roku UPnP/1.0"}},
	}
	for _, resp := range cases {
		assert.Equal(t, VerdictReject, Classify(resp), resp.Headers)
	}
}

func TestClassifyFastPathsWiiMAndLinkplay(t *testing.T) {
	cases := []Response{
		{Headers: map[string]string{"SERVER": "Linux/3.10 UPnP/1.0 WiiM/1.0"}},
		{Headers: map[string]string{"SERVER": "Linkplay/1.0 UPnP/1.0"}},
	}
	for _, resp := range cases {
		assert.Equal(t, VerdictAccept, Classify(resp), resp.Headers)
	}
}

func TestClassifyRequiresProbeForUnknownSignatures(t *testing.T) {
	resp := Response{Headers: map[string]string{"SERVER": "Linux UPnP/1.0 SomeOtherRenderer/2.0"}}
	assert.Equal(t, VerdictProbeRequired, Classify(resp))
}

func TestExtractHostParsesLocationURL(t *testing.T) {
	assert.Equal(t, "10.0.0.5", extractHost("http://10.0.0.5:49152/description.xml"))
	assert.Equal(t, "", extractHost(""))
	assert.Equal(t, "", extractHost("::not a url::"))
}

func fakePlayerStatusServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/httpapi.asp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"uuid": "probe-uuid", "status": "play"})
	})
	return httptest.NewServer(mux)
}

func clientFor(t *testing.T, srv *httptest.Server) *transport.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", port)
	return xport
}

func TestProbeWithClientSucceedsAgainstPlayerStatusEndpoint(t *testing.T) {
	srv := fakePlayerStatusServer(t)
	defer srv.Close()

	err := probeWithClient(context.Background(), clientFor(t, srv))
	assert.NoError(t, err)
}

func TestProbeWithClientFailsAgainstUnresponsiveEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/httpapi.asp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	err := probeWithClient(context.Background(), clientFor(t, srv))
	assert.Error(t, err)
}
