package signaling

import "encoding/json"

// Message is the envelope for every websocket message between the room
// client and the signaling server. The payload is decoded per type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	TypeJoinRoom     = "join_room"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypeChat         = "message"
	TypeGameAction   = "game_action"
	TypeOffer        = "webrtc_offer"
	TypeAnswer       = "webrtc_answer"
	TypeICECandidate = "webrtc_ice_candidate"
	TypeCameraStatus = "camera_status"
	TypeMicStatus    = "mic_status"
	TypeTurnChange   = "turn_change"
)

// User identifies the local player when joining and on chat/game messages.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Player is a roster entry as reported by the server.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	IsHost bool   `json:"isHost,omitempty"`
}

// SessionDescription carries an SDP offer or answer over the wire.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type JoinRoomPayload struct {
	SessionID string `json:"sessionId"`
	User      User   `json:"user"`
}

// RosterPayload is sent for player_joined and player_left. Players carries
// the full current roster, not a delta.
type RosterPayload struct {
	Player  Player   `json:"player"`
	Players []Player `json:"players"`
}

type ChatPayload struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
	User      User   `json:"user"`
}

type GameActionPayload struct {
	SessionID string          `json:"sessionId"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	User      User            `json:"user"`
}

// OfferPayload and AnswerPayload are relayed by the server to the target
// player only. From is stamped by the server so the target knows whom to
// address the response to.
type OfferPayload struct {
	SessionID    string             `json:"sessionId"`
	TargetPlayer string             `json:"targetPlayer"`
	From         string             `json:"from,omitempty"`
	Offer        SessionDescription `json:"offer"`
}

type AnswerPayload struct {
	SessionID    string             `json:"sessionId"`
	TargetPlayer string             `json:"targetPlayer"`
	From         string             `json:"from,omitempty"`
	Answer       SessionDescription `json:"answer"`
}

type ICECandidatePayload struct {
	SessionID    string          `json:"sessionId"`
	TargetPlayer string          `json:"targetPlayer"`
	From         string          `json:"from,omitempty"`
	Candidate    json.RawMessage `json:"candidate"`
}

type CameraStatusPayload struct {
	PlayerName string `json:"playerName"`
	CameraOn   bool   `json:"cameraOn"`
}

type MicStatusPayload struct {
	PlayerName string `json:"playerName"`
	MicOn      bool   `json:"micOn"`
}

type TurnChangePayload struct {
	Player Player `json:"player"`
}

// DiceRollData is the data field of a game_action with action "dice_roll".
type DiceRollData struct {
	Sides  int `json:"sides"`
	Result int `json:"result"`
}

// Game action names carried in GameActionPayload.Action.
const (
	ActionDiceRoll = "dice_roll"
	ActionEndTurn  = "end_turn"
)

// NewMessage marshals payload into a tagged envelope. Marshal failures are
// programmer errors (all payload types are plain structs), so they surface
// as a nil-payload message rather than an error return.
func NewMessage(msgType string, payload any) *Message {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &Message{Type: msgType}
	}
	return &Message{Type: msgType, Payload: raw}
}
