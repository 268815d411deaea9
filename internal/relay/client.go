package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for SDP blobs.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection from one room participant.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// RoomID is set once the client sends join_room.
	RoomID string

	// Player identity, set on join_room.
	Player signaling.Player

	// Send is the buffered channel for outbound messages; WritePump drains it.
	Send chan *signaling.Message
}

// inbound pairs a decoded message with the client that sent it.
type inbound struct {
	msg    *signaling.Message
	client *Client
}

// ReadPump pumps messages from the websocket connection to the hub. At most
// one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "err", err)
			}
			break
		}

		c.Hub.Inbound <- &inbound{msg: &msg, client: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection. At most
// one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Debug("websocket write error", "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
