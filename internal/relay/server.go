package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay is a development server; it accepts any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter wires the relay's HTTP surface: the signaling websocket, health
// and metrics, and the game-sessions REST endpoints the room client reads.
func NewRouter(hub *Hub) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", serveWs(hub))
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/game-sessions/{id}", getSession(hub)).Methods(http.MethodGet)
	r.HandleFunc("/api/game-sessions/{id}/leave", leaveSession).Methods(http.MethodPost)

	return r
}

// serveWs upgrades the connection and hands the client to the hub.
func serveWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := &Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *signaling.Message, 256),
		}

		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// sessionResponse mirrors the shape the production backend serves for
// GET /api/game-sessions/{id}.
type sessionResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HostID     string `json:"hostId"`
	HostName   string `json:"hostName"`
	Format     string `json:"format"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     string `json:"status"`
}

func getSession(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		w.Header().Set("Content-Type", "application/json")

		resp := sessionResponse{
			ID:         id,
			Name:       "Local game",
			Format:     "commander",
			MaxPlayers: 4,
			Status:     "waiting",
		}
		if snap, ok := hub.Snapshot(id); ok {
			resp.HostID = snap.Host.ID
			resp.HostName = snap.Host.Name
			resp.Status = "active"
		}

		json.NewEncoder(w).Encode(resp)
	}
}

// leaveSession acknowledges an explicit leave. Membership itself is driven
// by the websocket closing, so there is nothing else to do here.
func leaveSession(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
