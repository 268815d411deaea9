package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var ErrClosed = errors.New("signaling channel closed")

// Handler consumes the raw payload of one message type.
type Handler func(payload json.RawMessage)

// Channel is the duplex signaling connection the room controller talks to.
// *Client is the production implementation.
type Channel interface {
	Connect(ctx context.Context, roomID string, user User) error
	Send(msg *Message)
	On(msgType string, h Handler)
	OnDisconnect(fn func())
	Close()
}

// Client manages the WebSocket connection to the signaling server for a
// single room. Incoming messages are dispatched by type tag to registered
// handlers; outgoing delivery is best effort.
type Client struct {
	serverURL string

	mu        sync.Mutex
	conn      *websocket.Conn
	roomID    string
	connected bool
	closed    bool

	hmu          sync.RWMutex
	handlers     map[string]Handler
	onDisconnect func()

	outgoing  chan *Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a signaling client for the given websocket endpoint.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		handlers:  make(map[string]Handler),
		outgoing:  make(chan *Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect opens the channel and announces the local player with a join_room
// message. Calling Connect again for the same room is a no-op.
func (c *Client) Connect(ctx context.Context, roomID string, user User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.connected {
		if c.roomID == roomID {
			return nil
		}
		return fmt.Errorf("already connected to room %s", c.roomID)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.roomID = roomID
	c.connected = true

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump(conn)
	go c.writePump(conn)

	c.outgoing <- NewMessage(TypeJoinRoom, JoinRoomPayload{
		SessionID: roomID,
		User:      user,
	})

	return nil
}

// On registers the handler for one message type. A single dispatch target
// per type is sufficient; registering again replaces the previous handler.
func (c *Client) On(msgType string, h Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[msgType] = h
}

// OnDisconnect registers a callback invoked once when the transport drops
// without an explicit Close.
func (c *Client) OnDisconnect(fn func()) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.onDisconnect = fn
}

// Send queues a message for delivery. Delivery is best effort: when the
// channel is not open the message is logged and dropped, never an error.
func (c *Client) Send(msg *Message) {
	c.mu.Lock()
	open := c.connected && !c.closed
	c.mu.Unlock()

	if !open {
		slog.Warn("signaling send on closed channel", "type", msg.Type)
		return
	}

	select {
	case c.outgoing <- msg:
	case <-c.done:
	default:
		slog.Warn("signaling send buffer full, dropping", "type", msg.Type)
	}
}

// readPump reads messages from the connection and dispatches them by tag.
// All handler invocations happen on this single goroutine.
func (c *Client) readPump(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		c.markDisconnected()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		c.hmu.RLock()
		h := c.handlers[msg.Type]
		c.hmu.RUnlock()

		if h == nil {
			slog.Debug("no handler for signaling message", "type", msg.Type)
			continue
		}
		h(msg.Payload)
	}
}

// writePump serializes outgoing messages and sends periodic pings.
func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	wasConnected := c.connected
	explicit := c.closed
	c.connected = false
	c.mu.Unlock()

	if !wasConnected || explicit {
		return
	}

	c.hmu.RLock()
	fn := c.onDisconnect
	c.hmu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Close shuts the underlying transport exactly once. Safe to call from any
// exit path, any number of times.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
	})
}
