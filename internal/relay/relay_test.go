package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

type event struct {
	msgType string
	payload json.RawMessage
}

// peer is one signaling client connected to the relay under test, funnelling
// every received message into a single event stream.
type peer struct {
	client *signaling.Client
	events chan event
}

var watchedTypes = []string{
	signaling.TypePlayerJoined,
	signaling.TypePlayerLeft,
	signaling.TypeChat,
	signaling.TypeGameAction,
	signaling.TypeOffer,
	signaling.TypeAnswer,
	signaling.TypeICECandidate,
	signaling.TypeCameraStatus,
	signaling.TypeTurnChange,
}

func startRelay(t *testing.T) string {
	t.Helper()
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connectPeer(t *testing.T, wsURL, roomID, id, name string) *peer {
	t.Helper()
	p := &peer{
		client: signaling.NewClient(wsURL),
		events: make(chan event, 64),
	}
	for _, msgType := range watchedTypes {
		p.client.On(msgType, func(payload json.RawMessage) {
			p.events <- event{msgType: msgType, payload: payload}
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.client.Connect(ctx, roomID, signaling.User{ID: id, Name: name}))
	t.Cleanup(p.client.Close)
	return p
}

// waitFor blocks until the peer receives a message of the given type,
// discarding everything else in between.
func waitFor(t *testing.T, p *peer, msgType string) json.RawMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-p.events:
			if ev.msgType == msgType {
				return ev.payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return nil
		}
	}
}

// expectNone asserts no message of the given type arrives within the window.
func expectNone(t *testing.T, p *peer, msgType string, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev := <-p.events:
			if ev.msgType == msgType {
				t.Fatalf("unexpected %s: %s", msgType, ev.payload)
			}
		case <-deadline:
			return
		}
	}
}

func TestJoinConvergesRosters(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")

	// The first joiner opens play.
	var selfJoin signaling.RosterPayload
	require.NoError(t, json.Unmarshal(waitFor(t, alice, signaling.TypePlayerJoined), &selfJoin))
	assert.Equal(t, "alice", selfJoin.Player.ID)
	assert.True(t, selfJoin.Player.IsHost)

	var turn signaling.TurnChangePayload
	require.NoError(t, json.Unmarshal(waitFor(t, alice, signaling.TypeTurnChange), &turn))
	assert.Equal(t, "alice", turn.Player.ID)

	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")

	// Both sides see the same two-player roster announcing bob.
	for _, p := range []*peer{alice, bob} {
		var joined signaling.RosterPayload
		require.NoError(t, json.Unmarshal(waitFor(t, p, signaling.TypePlayerJoined), &joined))
		assert.Equal(t, "bob", joined.Player.ID)

		ids := make([]string, 0, len(joined.Players))
		for _, pl := range joined.Players {
			ids = append(ids, pl.ID)
		}
		assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
	}
}

func TestChatRelayedToOthersOnly(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")
	waitFor(t, alice, signaling.TypePlayerJoined)
	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")
	waitFor(t, alice, signaling.TypePlayerJoined)
	waitFor(t, bob, signaling.TypePlayerJoined)

	alice.client.Send(signaling.NewMessage(signaling.TypeChat, signaling.ChatPayload{
		SessionID: "room-1",
		Content:   "gg",
		User:      signaling.User{ID: "alice", Name: "Alice"},
	}))

	var chat signaling.ChatPayload
	require.NoError(t, json.Unmarshal(waitFor(t, bob, signaling.TypeChat), &chat))
	assert.Equal(t, "gg", chat.Content)
	assert.Equal(t, "Alice", chat.User.Name)

	expectNone(t, alice, signaling.TypeChat, 150*time.Millisecond)
}

func TestOfferRelayedToTargetWithSenderStamped(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")
	waitFor(t, alice, signaling.TypePlayerJoined)
	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")
	carol := connectPeer(t, wsURL, "room-1", "carol", "Carol")
	waitFor(t, bob, signaling.TypePlayerJoined)
	waitFor(t, carol, signaling.TypePlayerJoined)

	alice.client.Send(signaling.NewMessage(signaling.TypeOffer, signaling.OfferPayload{
		SessionID:    "room-1",
		TargetPlayer: "bob",
		Offer:        signaling.SessionDescription{Type: "offer", SDP: "v=0"},
	}))

	var offer signaling.OfferPayload
	require.NoError(t, json.Unmarshal(waitFor(t, bob, signaling.TypeOffer), &offer))
	assert.Equal(t, "alice", offer.From, "relay stamps the sender id")
	assert.Equal(t, "v=0", offer.Offer.SDP)

	expectNone(t, carol, signaling.TypeOffer, 150*time.Millisecond)
}

func TestDepartureBroadcast(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")
	waitFor(t, alice, signaling.TypePlayerJoined)
	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")
	waitFor(t, alice, signaling.TypePlayerJoined)

	bob.client.Close()

	var left signaling.RosterPayload
	require.NoError(t, json.Unmarshal(waitFor(t, alice, signaling.TypePlayerLeft), &left))
	assert.Equal(t, "bob", left.Player.ID)

	ids := make([]string, 0, len(left.Players))
	for _, pl := range left.Players {
		ids = append(ids, pl.ID)
	}
	assert.ElementsMatch(t, []string{"alice"}, ids)
}

func TestEndTurnAdvancesRoundRobin(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")
	waitFor(t, alice, signaling.TypeTurnChange)
	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")
	waitFor(t, bob, signaling.TypePlayerJoined)

	alice.client.Send(signaling.NewMessage(signaling.TypeGameAction, signaling.GameActionPayload{
		SessionID: "room-1",
		Action:    signaling.ActionEndTurn,
		User:      signaling.User{ID: "alice", Name: "Alice"},
	}))

	// Both the remaining broadcast recipients and the sender learn the turn
	// moved to bob.
	var turn signaling.TurnChangePayload
	require.NoError(t, json.Unmarshal(waitFor(t, alice, signaling.TypeTurnChange), &turn))
	assert.Equal(t, "bob", turn.Player.ID)

	require.NoError(t, json.Unmarshal(waitFor(t, bob, signaling.TypeTurnChange), &turn))
	assert.Equal(t, "bob", turn.Player.ID)
}

func TestGameActionBroadcastExcludesSender(t *testing.T) {
	wsURL := startRelay(t)

	alice := connectPeer(t, wsURL, "room-1", "alice", "Alice")
	waitFor(t, alice, signaling.TypePlayerJoined)
	bob := connectPeer(t, wsURL, "room-1", "bob", "Bob")
	waitFor(t, bob, signaling.TypePlayerJoined)

	data, _ := json.Marshal(signaling.DiceRollData{Sides: 20, Result: 11})
	alice.client.Send(signaling.NewMessage(signaling.TypeGameAction, signaling.GameActionPayload{
		SessionID: "room-1",
		Action:    signaling.ActionDiceRoll,
		Data:      data,
		User:      signaling.User{ID: "alice", Name: "Alice"},
	}))

	var action signaling.GameActionPayload
	require.NoError(t, json.Unmarshal(waitFor(t, bob, signaling.TypeGameAction), &action))
	assert.Equal(t, signaling.ActionDiceRoll, action.Action)

	expectNone(t, alice, signaling.TypeGameAction, 150*time.Millisecond)
}
