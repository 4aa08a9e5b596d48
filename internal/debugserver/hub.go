package debugserver

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stateEvent is the JSON frame streamed to every connected client for each
// onStateChanged callback.
type stateEvent struct {
	PlayerID string         `json:"player_id"`
	Changed  map[string]any `json:"changed"`
	At       time.Time      `json:"at"`
}

// Hub fans out Player state-change events to any number of connected
// /v1/ws/state clients. Adapted from the connection-registration/ping-loop
// shape of a single-connection manager to a multi-client broadcaster: every
// registered conn receives every event, and a slow/dead client is dropped
// rather than blocking the others.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHub builds an empty Hub and starts its ping loop.
func NewHub() *Hub {
	h := &Hub{
		clients: map[*websocket.Conn]struct{}{},
		stopCh:  make(chan struct{}),
	}
	h.wg.Add(1)
	go h.pingLoop()
	return h
}

// Broadcast sends a state-change event to every connected client. It is
// safe to pass directly as a player.New onChange callback.
func (h *Hub) Broadcast(playerID string, changed map[string]any) {
	evt := stateEvent{PlayerID: playerID, Changed: changed, At: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(evt); err != nil {
			log.Printf("debugserver: dropping ws client after write error: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	go h.readLoop(conn)
}

// readLoop drains (and discards) client frames solely to detect
// disconnects; this surface is write-only from the server's perspective.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
}

func (h *Hub) pingLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops the ping loop and closes every connected client.
func (h *Hub) Close() {
	select {
	case <-h.stopCh:
		return
	default:
		close(h.stopCh)
	}
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = map[*websocket.Conn]struct{}{}
}

func registerWebsocketRoute(router chi.Router, hub *Hub) {
	router.HandleFunc("/v1/ws/state", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.register(conn)
	})
}
