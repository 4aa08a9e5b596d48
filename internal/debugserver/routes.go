package debugserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeromeof/pywiim-sub000/internal/api"
)

func registerStateRoutes(router chi.Router, reg Registry) {
	router.Method(http.MethodGet, "/v1/players/{id}/state", api.Handler(playerStateHandler(reg)))
	router.Method(http.MethodGet, "/v1/groups", api.Handler(groupsHandler(reg)))
}

func playerStateHandler(reg Registry) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		id := chi.URLParam(r, "id")
		p, ok := reg.Player(id)
		if !ok {
			http.NotFound(w, r)
			return nil
		}
		status := p.Status()
		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object": "player_state",
			"id":     p.ID(),
			"state":  status,
		})
	}
}

func groupsHandler(reg Registry) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		groups := reg.Groups()
		data := make([]map[string]any, 0, len(groups))
		for _, g := range groups {
			members := g.Members()
			ids := make([]string, 0, len(members))
			for _, m := range members {
				ids = append(ids, m.ID())
			}
			data = append(data, map[string]any{
				"object":  "group",
				"id":      g.ID(),
				"master":  g.Master().ID(),
				"members": ids,
				"volume":  g.Volume(),
			})
		}
		return api.WriteList(w, "/v1/groups", data, false)
	}
}
