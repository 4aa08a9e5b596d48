// Package debugserver exposes a chi-routed, read-only HTTP+WebSocket
// surface over Player/Group state. It issues no commands — there are no
// POST/PUT routes — it only reflects what Refresh and UPnP events have
// already populated.
package debugserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeromeof/pywiim-sub000/internal/api"
	"github.com/jeromeof/pywiim-sub000/internal/group"
	"github.com/jeromeof/pywiim-sub000/internal/player"
)

// Registry is whatever the caller uses to track live Players and Groups.
// The out-of-scope CLI/HA layer owns construction and grouping; this
// package only reads from it.
type Registry interface {
	Player(id string) (*player.Player, bool)
	Players() []*player.Player
	Groups() []*group.Group
}

// responseWriter wraps http.ResponseWriter to capture status code for
// request logging.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// NewHandler builds the debug HTTP handler and its state-change hub. Wire
// hub.Broadcast as the onChange callback passed to player.New so websocket
// clients see updates as they happen.
func NewHandler(reg Registry) (http.Handler, *Hub) {
	hub := NewHub()

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)

	registerHealthRoutes(router)
	registerStateRoutes(router, reg)
	registerWebsocketRoute(router, hub)

	return router, hub
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "pywiim-core",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}

// Shutdown stops the hub's background goroutines. Safe to call even if
// NewHandler's hub was never referenced elsewhere.
func Shutdown(ctx context.Context, hub *Hub) error {
	hub.Close()
	return nil
}
