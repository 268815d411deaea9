package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades connections, records everything the client sends, and
// can push messages back down.
type echoServer struct {
	t *testing.T

	mu       sync.Mutex
	received []Message
	conn     *websocket.Conn
	connCh   chan struct{}
}

func newEchoServer(t *testing.T) (*echoServer, *httptest.Server) {
	es := &echoServer{t: t, connCh: make(chan struct{}, 1)}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		es.mu.Lock()
		es.conn = conn
		es.mu.Unlock()
		es.connCh <- struct{}{}

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			es.mu.Lock()
			es.received = append(es.received, msg)
			es.mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)

	return es, srv
}

func (es *echoServer) push(t *testing.T, msg *Message) {
	es.mu.Lock()
	defer es.mu.Unlock()
	require.NotNil(t, es.conn)
	require.NoError(t, es.conn.WriteJSON(msg))
}

func (es *echoServer) messages() []Message {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]Message, len(es.received))
	copy(out, es.received)
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectSendsJoinRoom(t *testing.T) {
	es, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))
	defer client.Close()

	err := client.Connect(context.Background(), "room-1", User{ID: "u1", Name: "Alex"})
	require.NoError(t, err)
	<-es.connCh

	require.Eventually(t, func() bool {
		return len(es.messages()) == 1
	}, time.Second, 10*time.Millisecond)

	msg := es.messages()[0]
	assert.Equal(t, TypeJoinRoom, msg.Type)

	var p JoinRoomPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "room-1", p.SessionID)
	assert.Equal(t, "Alex", p.User.Name)
}

func TestConnectIdempotentForSameRoom(t *testing.T) {
	es, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))
	defer client.Close()

	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))
	<-es.connCh

	// Second connect to the same room is a no-op: no second join_room.
	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, es.messages(), 1)

	// A different room while connected is refused.
	assert.Error(t, client.Connect(context.Background(), "room-2", User{ID: "u1"}))
}

func TestDispatchByTag(t *testing.T) {
	es, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))
	defer client.Close()

	got := make(chan ChatPayload, 1)
	client.On(TypeChat, func(payload json.RawMessage) {
		var p ChatPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		got <- p
	})

	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))
	<-es.connCh

	es.push(t, NewMessage(TypeChat, ChatPayload{Content: "gg", User: User{ID: "u2", Name: "Sam"}}))

	select {
	case p := <-got:
		assert.Equal(t, "gg", p.Content)
		assert.Equal(t, "Sam", p.User.Name)
	case <-time.After(time.Second):
		t.Fatal("chat handler was not invoked")
	}
}

func TestSendAfterCloseIsSilent(t *testing.T) {
	_, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))

	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))
	client.Close()

	// Must not panic or block.
	client.Send(NewMessage(TypeChat, ChatPayload{Content: "into the void"}))
}

func TestCloseIsIdempotent(t *testing.T) {
	_, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))

	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))

	client.Close()
	client.Close()
	client.Close()
}

func TestConnectAfterCloseFails(t *testing.T) {
	_, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))
	client.Close()

	err := client.Connect(context.Background(), "room-1", User{ID: "u1"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDisconnectCallbackFiresOnTransportLoss(t *testing.T) {
	es, srv := newEchoServer(t)
	client := NewClient(wsURL(srv))
	defer client.Close()

	disconnected := make(chan struct{}, 1)
	client.OnDisconnect(func() { disconnected <- struct{}{} })

	require.NoError(t, client.Connect(context.Background(), "room-1", User{ID: "u1"}))
	<-es.connCh

	es.mu.Lock()
	es.conn.Close()
	es.mu.Unlock()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("disconnect callback was not invoked")
	}
}
