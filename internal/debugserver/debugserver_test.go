package debugserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/jeromeof/pywiim-sub000/internal/group"
	"github.com/jeromeof/pywiim-sub000/internal/player"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/jeromeof/pywiim-sub000/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	players map[string]*player.Player
	groups  []*group.Group
}

func (r *fakeRegistry) Player(id string) (*player.Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *fakeRegistry) Players() []*player.Player {
	out := make([]*player.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

func (r *fakeRegistry) Groups() []*group.Group { return r.groups }

func fakeDevice(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/httpapi.asp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uuid":     "debug-uuid",
			"project":  "GenericSpeaker",
			"firmware": "1.0.0",
			"status":   "play",
			"vol":      "40",
			"mute":     "0",
			"loop":     "0",
			"mode":     "wifi",
			"totlen":   "100",
			"curpos":   "1",
			"Title":    "Track",
			"group":    "0",
		})
	})
	return httptest.NewServer(mux)
}

func newTestPlayer(t *testing.T, srv *httptest.Server, id string) *player.Player {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	xport := transport.NewClient("127.0.0.1", nil)
	xport.SetEndpoint("http", port)

	p := player.New(id, "127.0.0.1", profile.NewRegistry(), xport, nil)
	require.NoError(t, p.Refresh(context.Background()))
	return p
}

func TestPlayerStateRouteReturnsStatus(t *testing.T) {
	srv := fakeDevice(t)
	defer srv.Close()
	p := newTestPlayer(t, srv, "debug-uuid")

	reg := &fakeRegistry{players: map[string]*player.Player{"debug-uuid": p}}
	handler, hub := NewHandler(reg)
	defer hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/players/debug-uuid/state", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "debug-uuid", body["id"])
}

func TestPlayerStateRouteReturns404ForUnknownID(t *testing.T) {
	reg := &fakeRegistry{players: map[string]*player.Player{}}
	handler, hub := NewHandler(reg)
	defer hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/players/missing/state", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupsRouteListsMembers(t *testing.T) {
	masterSrv := fakeDevice(t)
	defer masterSrv.Close()
	master := newTestPlayer(t, masterSrv, "debug-uuid")
	g := group.New(master)

	reg := &fakeRegistry{players: map[string]*player.Player{"debug-uuid": master}, groups: []*group.Group{g}}
	handler, hub := NewHandler(reg)
	defer hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/groups", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestHealthRoutesRespondOK(t *testing.T) {
	reg := &fakeRegistry{players: map[string]*player.Player{}}
	handler, hub := NewHandler(reg)
	defer hub.Close()

	for _, path := range []string{"/v1/health", "/v1/health/live", "/v1/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
