package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

// Hub is the heart of the relay: it owns every room and processes all
// signaling traffic on a single goroutine, so room state needs no locking
// beyond the snapshot accessors.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *inbound
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
	}
}

// RoomSnapshot is read-only room info for the REST endpoints.
type RoomSnapshot struct {
	ID      string
	Host    signaling.Player
	Players []signaling.Player
}

// Snapshot returns the current state of one room, or false when it has no
// participants.
func (h *Hub) Snapshot(roomID string) (RoomSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}

	snap := RoomSnapshot{ID: roomID, Players: room.roster()}
	for _, p := range snap.Players {
		if p.IsHost {
			snap.Host = p
			break
		}
	}
	return snap, true
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			activeConnections.Inc()
			slog.Debug("client connected", "addr", client.Conn.RemoteAddr())

		case client := <-h.Unregister:
			activeConnections.Dec()
			h.dropClient(client)
			close(client.Send)

		case in := <-h.Inbound:
			messagesRelayed.WithLabelValues(in.msg.Type).Inc()
			h.dispatch(in)
		}
	}
}

func (h *Hub) dispatch(in *inbound) {
	switch in.msg.Type {
	case signaling.TypeJoinRoom:
		h.handleJoin(in)
	case signaling.TypeChat, signaling.TypeCameraStatus, signaling.TypeMicStatus:
		h.relayToOthers(in)
	case signaling.TypeGameAction:
		h.handleGameAction(in)
	case signaling.TypeOffer, signaling.TypeAnswer, signaling.TypeICECandidate:
		h.relayToTarget(in)
	default:
		slog.Warn("unknown message type", "type", in.msg.Type)
	}
}

func (h *Hub) handleJoin(in *inbound) {
	var p signaling.JoinRoomPayload
	if err := json.Unmarshal(in.msg.Payload, &p); err != nil {
		slog.Warn("bad join_room payload", "err", err)
		return
	}
	if p.SessionID == "" {
		return
	}

	playerID := p.User.ID
	if playerID == "" {
		playerID = uuid.New().String()
	}
	in.client.Player = signaling.Player{
		ID:     playerID,
		Name:   p.User.Name,
		Avatar: p.User.Avatar,
	}

	h.mu.Lock()
	room, ok := h.rooms[p.SessionID]
	if !ok {
		room = newRoom(p.SessionID)
		h.rooms[p.SessionID] = room
		activeRooms.Inc()
	}
	first := room.empty()
	room.add(in.client)
	in.client.RoomID = p.SessionID
	h.mu.Unlock()

	slog.Info("player joined", "room", p.SessionID, "player", p.User.Name)

	h.broadcast(room, signaling.NewMessage(signaling.TypePlayerJoined, signaling.RosterPayload{
		Player:  in.client.Player,
		Players: room.roster(),
	}), "")

	// The host opens the room and opens play.
	if first {
		h.broadcast(room, signaling.NewMessage(signaling.TypeTurnChange, signaling.TurnChangePayload{
			Player: in.client.Player,
		}), "")
	}
}

func (h *Hub) handleGameAction(in *inbound) {
	var p signaling.GameActionPayload
	if err := json.Unmarshal(in.msg.Payload, &p); err != nil {
		slog.Warn("bad game_action payload", "err", err)
		return
	}

	room := h.roomOf(in.client)
	if room == nil {
		return
	}

	h.broadcast(room, in.msg, in.client.Player.ID)

	if p.Action == signaling.ActionEndTurn {
		if next, ok := room.advanceTurn(); ok {
			h.broadcast(room, signaling.NewMessage(signaling.TypeTurnChange, signaling.TurnChangePayload{
				Player: next,
			}), "")
		}
	}
}

// relayToOthers forwards the message untouched to everyone else in the
// sender's room.
func (h *Hub) relayToOthers(in *inbound) {
	room := h.roomOf(in.client)
	if room == nil {
		slog.Debug("message from client outside any room", "type", in.msg.Type)
		return
	}
	h.broadcast(room, in.msg, in.client.Player.ID)
}

// relayToTarget stamps the sender id into the payload and forwards the
// message to the addressed player only.
func (h *Hub) relayToTarget(in *inbound) {
	room := h.roomOf(in.client)
	if room == nil {
		return
	}

	var addr struct {
		TargetPlayer string `json:"targetPlayer"`
	}
	if err := json.Unmarshal(in.msg.Payload, &addr); err != nil || addr.TargetPlayer == "" {
		slog.Warn("unaddressed webrtc message", "type", in.msg.Type)
		return
	}

	stamped, err := stampFrom(in.msg.Payload, in.client.Player.ID)
	if err != nil {
		slog.Warn("failed to stamp sender", "type", in.msg.Type, "err", err)
		return
	}

	h.mu.RLock()
	target, ok := room.Clients[addr.TargetPlayer]
	h.mu.RUnlock()
	if !ok {
		slog.Debug("webrtc target not in room", "target", addr.TargetPlayer)
		return
	}

	h.send(target, &signaling.Message{Type: in.msg.Type, Payload: stamped})
}

// stampFrom injects the relay-authoritative sender id into a webrtc payload.
func stampFrom(payload json.RawMessage, senderID string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	from, _ := json.Marshal(senderID)
	fields["from"] = from
	return json.Marshal(fields)
}

func (h *Hub) dropClient(client *Client) {
	if client.RoomID == "" {
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if !ok {
		h.mu.Unlock()
		return
	}

	room.remove(client.Player.ID)
	if room.empty() {
		delete(h.rooms, client.RoomID)
		activeRooms.Dec()
		h.mu.Unlock()
		slog.Info("room closed", "room", client.RoomID)
		return
	}
	h.mu.Unlock()

	slog.Info("player left", "room", client.RoomID, "player", client.Player.Name)

	h.broadcast(room, signaling.NewMessage(signaling.TypePlayerLeft, signaling.RosterPayload{
		Player:  client.Player,
		Players: room.roster(),
	}), "")
}

func (h *Hub) roomOf(client *Client) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client.RoomID == "" {
		return nil
	}
	return h.rooms[client.RoomID]
}

// broadcast sends to every client in the room except excludeID.
func (h *Hub) broadcast(room *Room, msg *signaling.Message, excludeID string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(room.Clients))
	for id, c := range room.Clients {
		if id == excludeID {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.send(c, msg)
	}
}

// send delivers best-effort: a client with a full send buffer is skipped
// rather than blocking the hub loop.
func (h *Hub) send(c *Client, msg *signaling.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("client send buffer full, dropping", "player", c.Player.ID, "type", msg.Type)
	}
}
