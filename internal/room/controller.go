package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/api"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/media"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/rtc"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

// Status is the channel-level connection state shown to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusDisconnected
	StatusLeft
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusLeft:
		return "left"
	default:
		return "idle"
	}
}

// Controller wires the signaling channel, the peer connection manager, the
// membership tracker, and the session state together, and exposes the user
// actions of the room view. It owns all of them for the lifetime of one room
// visit; Leave tears everything down.
type Controller struct {
	roomID  string
	self    signaling.User
	channel signaling.Channel
	links   *rtc.Manager
	roster  *Tracker
	session *Session
	devices *media.Devices
	rest    *api.Client

	mu       sync.Mutex
	status   Status
	meta     *api.GameSession
	notices  []string
	leftOnce sync.Once
	tickStop chan struct{}

	updates chan struct{}
}

// ControllerOption tweaks controller construction.
type ControllerOption func(*Controller)

// WithSessionOptions forwards options to the owned session state.
func WithSessionOptions(opts ...SessionOption) ControllerOption {
	return func(c *Controller) { c.session = NewSession(opts...) }
}

// NewController builds the room wiring. devices and rest may be nil: the
// room proceeds without local media, and without session metadata.
func NewController(roomID string, self signaling.User, channel signaling.Channel,
	devices *media.Devices, rest *api.Client, stunServers []string,
	opts ...ControllerOption) *Controller {

	c := &Controller{
		roomID:   roomID,
		self:     self,
		channel:  channel,
		devices:  devices,
		rest:     rest,
		session:  NewSession(),
		tickStop: make(chan struct{}),
		updates:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.links = rtc.NewManager(c, devices, stunServers)
	c.roster = NewTracker(self.ID, linkAdapter{c.links})
	c.session.OnChange(c.notifyUpdate)
	c.registerHandlers()

	return c
}

// linkAdapter narrows *rtc.Manager to what the tracker needs.
type linkAdapter struct {
	m *rtc.Manager
}

func (a linkAdapter) EnsureLink(participantID string, initiator bool) error {
	_, err := a.m.EnsureLink(participantID, initiator)
	return err
}

func (a linkAdapter) TeardownLink(participantID string) {
	a.m.TeardownLink(participantID)
}

func (c *Controller) registerHandlers() {
	c.channel.On(signaling.TypePlayerJoined, c.handlePlayerJoined)
	c.channel.On(signaling.TypePlayerLeft, c.handlePlayerLeft)
	c.channel.On(signaling.TypeChat, c.handleChat)
	c.channel.On(signaling.TypeGameAction, c.handleGameAction)
	c.channel.On(signaling.TypeOffer, c.handleOffer)
	c.channel.On(signaling.TypeAnswer, c.handleAnswer)
	c.channel.On(signaling.TypeICECandidate, c.handleCandidate)
	c.channel.On(signaling.TypeCameraStatus, c.handleCameraStatus)
	c.channel.On(signaling.TypeMicStatus, c.handleMicStatus)
	c.channel.On(signaling.TypeTurnChange, c.handleTurnChange)
	c.channel.OnDisconnect(func() {
		c.setStatus(StatusDisconnected)
	})
}

// Join fetches session metadata, connects the signaling channel, and starts
// the 1-second timer tick. Metadata failures are non-fatal; the room opens
// without the header info.
func (c *Controller) Join(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	if c.rest != nil {
		meta, err := c.rest.GetSession(ctx, c.roomID)
		if err != nil {
			slog.Warn("session metadata fetch failed", "room", c.roomID, "err", err)
		} else {
			c.mu.Lock()
			c.meta = meta
			c.mu.Unlock()
		}
	}

	if err := c.channel.Connect(ctx, c.roomID, c.self); err != nil {
		c.setStatus(StatusDisconnected)
		return NewError("join room", err)
	}

	c.setStatus(StatusConnected)
	go c.runTimerTicks()
	return nil
}

func (c *Controller) runTimerTicks() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.session.TimerTick()
		case <-c.tickStop:
			return
		}
	}
}

// SendChat appends the message locally and relays it to the room.
func (c *Controller) SendChat(text string) {
	if text == "" {
		return
	}

	c.session.AppendChat(ChatMessage{
		ID:          uuid.New().String(),
		SenderID:    c.self.ID,
		SenderName:  c.self.Name,
		Content:     text,
		TimestampMs: time.Now().UnixMilli(),
		Kind:        KindChat,
	})

	c.channel.Send(signaling.NewMessage(signaling.TypeChat, signaling.ChatPayload{
		SessionID: c.roomID,
		Content:   text,
		User:      c.self,
	}))
}

// RollDice draws a result, shows it locally, and broadcasts it as a
// game action.
func (c *Controller) RollDice(sides int) (DiceRoll, error) {
	roll, err := c.session.RollDice(sides, c.self.ID, c.self.Name)
	if err != nil {
		return DiceRoll{}, err
	}

	data, _ := json.Marshal(signaling.DiceRollData{Sides: roll.Sides, Result: roll.Result})
	c.channel.Send(signaling.NewMessage(signaling.TypeGameAction, signaling.GameActionPayload{
		SessionID: c.roomID,
		Action:    signaling.ActionDiceRoll,
		Data:      data,
		User:      c.self,
	}))

	c.appendGameAction(c.self.ID, c.self.Name, fmt.Sprintf("rolled a d%d: %d", roll.Sides, roll.Result))
	return roll, nil
}

// EndTurn hands the turn back to the server, which picks the next player.
func (c *Controller) EndTurn() {
	c.channel.Send(signaling.NewMessage(signaling.TypeGameAction, signaling.GameActionPayload{
		SessionID: c.roomID,
		Action:    signaling.ActionEndTurn,
		User:      c.self,
	}))
}

// ToggleCamera flips the shared camera track and announces the new state.
// Returns the state after the toggle.
func (c *Controller) ToggleCamera() bool {
	enabled := !c.mediaEnabled(media.KindCamera)
	c.links.SetTrackEnabled(media.KindCamera, enabled)
	c.channel.Send(signaling.NewMessage(signaling.TypeCameraStatus, signaling.CameraStatusPayload{
		PlayerName: c.self.Name,
		CameraOn:   enabled,
	}))
	c.notifyUpdate()
	return enabled
}

// ToggleMic flips the shared mic track and announces the new state.
func (c *Controller) ToggleMic() bool {
	enabled := !c.mediaEnabled(media.KindMic)
	c.links.SetTrackEnabled(media.KindMic, enabled)
	c.channel.Send(signaling.NewMessage(signaling.TypeMicStatus, signaling.MicStatusPayload{
		PlayerName: c.self.Name,
		MicOn:      enabled,
	}))
	c.notifyUpdate()
	return enabled
}

func (c *Controller) mediaEnabled(kind media.Kind) bool {
	return c.devices != nil && c.devices.Enabled(kind)
}

func (c *Controller) StartTimer() { c.session.StartTimer() }
func (c *Controller) PauseTimer() { c.session.PauseTimer() }
func (c *Controller) ResetTimer() { c.session.ResetTimer() }

// Leave tears the room down: signaling channel close, every peer link
// teardown, then the explicit-leave REST call. Safe to invoke any number of
// times, including racing an unmount against an explicit leave.
func (c *Controller) Leave(ctx context.Context) error {
	var restErr error

	c.leftOnce.Do(func() {
		close(c.tickStop)
		c.channel.Close()
		c.roster.Clear()
		c.links.CloseAll()
		c.setStatus(StatusLeft)

		if c.rest != nil {
			if err := c.rest.Leave(ctx, c.roomID); err != nil {
				c.addNotice("could not notify server of leave: " + err.Error())
				restErr = NewError("leave room", err)
			}
		}
	})

	return restErr
}

// --- signaling handlers ---

func (c *Controller) handlePlayerJoined(payload json.RawMessage) {
	var p signaling.RosterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad player_joined payload", "err", err)
		return
	}

	c.roster.ApplyRoster(&p.Player, p.Players)
	if p.Player.ID != "" && p.Player.ID != c.self.ID {
		c.appendSystem(p.Player.Name + " joined the table")
	}
	c.notifyUpdate()
}

func (c *Controller) handlePlayerLeft(payload json.RawMessage) {
	var p signaling.RosterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad player_left payload", "err", err)
		return
	}

	c.roster.ApplyRoster(nil, p.Players)
	if p.Player.Name != "" {
		c.appendSystem(p.Player.Name + " left the table")
	}
	c.notifyUpdate()
}

func (c *Controller) handleChat(payload json.RawMessage) {
	var p signaling.ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad chat payload", "err", err)
		return
	}

	c.session.AppendChat(ChatMessage{
		ID:          uuid.New().String(),
		SenderID:    p.User.ID,
		SenderName:  p.User.Name,
		Content:     p.Content,
		TimestampMs: time.Now().UnixMilli(),
		Kind:        KindChat,
	})
}

func (c *Controller) handleGameAction(payload json.RawMessage) {
	var p signaling.GameActionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad game_action payload", "err", err)
		return
	}

	switch p.Action {
	case signaling.ActionDiceRoll:
		var data signaling.DiceRollData
		if err := json.Unmarshal(p.Data, &data); err != nil {
			slog.Warn("bad dice_roll data", "err", err)
			return
		}
		c.session.RecordRoll(DiceRoll{
			Sides:      data.Sides,
			Result:     data.Result,
			RollerID:   p.User.ID,
			RollerName: p.User.Name,
		})
		c.appendGameAction(p.User.ID, p.User.Name, fmt.Sprintf("rolled a d%d: %d", data.Sides, data.Result))
	case signaling.ActionEndTurn:
		// The server advances the turn and broadcasts turn_change.
	default:
		slog.Debug("unknown game action", "action", p.Action)
	}
}

// Negotiation failures are logged only: the link stays in its prior state
// and nothing is surfaced to the user.
func (c *Controller) handleOffer(payload json.RawMessage) {
	var p signaling.OfferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad webrtc_offer payload", "err", err)
		return
	}
	if err := c.links.AcceptOffer(p.From, p.Offer); err != nil {
		slog.Warn("offer negotiation failed", "participant", p.From, "err", err)
	}
}

func (c *Controller) handleAnswer(payload json.RawMessage) {
	var p signaling.AnswerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad webrtc_answer payload", "err", err)
		return
	}
	if err := c.links.AcceptAnswer(p.From, p.Answer); err != nil {
		slog.Warn("answer negotiation failed", "participant", p.From, "err", err)
	}
}

func (c *Controller) handleCandidate(payload json.RawMessage) {
	var p signaling.ICECandidatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("bad webrtc_ice_candidate payload", "err", err)
		return
	}
	c.links.AddRemoteCandidate(p.From, p.Candidate)
}

func (c *Controller) handleCameraStatus(payload json.RawMessage) {
	var p signaling.CameraStatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.roster.SetAVStatus(p.PlayerName, "camera", p.CameraOn)
	c.notifyUpdate()
}

func (c *Controller) handleMicStatus(payload json.RawMessage) {
	var p signaling.MicStatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.roster.SetAVStatus(p.PlayerName, "mic", p.MicOn)
	c.notifyUpdate()
}

func (c *Controller) handleTurnChange(payload json.RawMessage) {
	var p signaling.TurnChangePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.session.SetTurn(p.Player.ID, p.Player.Name)
	c.appendSystem("it's " + p.Player.Name + "'s turn")
}

// --- rtc.Signaler ---

func (c *Controller) SendOffer(targetID string, offer signaling.SessionDescription) {
	c.channel.Send(signaling.NewMessage(signaling.TypeOffer, signaling.OfferPayload{
		SessionID:    c.roomID,
		TargetPlayer: targetID,
		Offer:        offer,
	}))
}

func (c *Controller) SendAnswer(targetID string, answer signaling.SessionDescription) {
	c.channel.Send(signaling.NewMessage(signaling.TypeAnswer, signaling.AnswerPayload{
		SessionID:    c.roomID,
		TargetPlayer: targetID,
		Answer:       answer,
	}))
}

func (c *Controller) SendCandidate(targetID string, candidate json.RawMessage) {
	c.channel.Send(signaling.NewMessage(signaling.TypeICECandidate, signaling.ICECandidatePayload{
		SessionID:    c.roomID,
		TargetPlayer: targetID,
		Candidate:    candidate,
	}))
}

// --- derived state for rendering ---

func (c *Controller) Self() signaling.User { return c.self }

func (c *Controller) RoomID() string { return c.roomID }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Meta() *api.GameSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

func (c *Controller) Roster() []*Participant { return c.roster.Participants() }

func (c *Controller) Links() *rtc.Manager { return c.links }

func (c *Controller) Transcript() []ChatMessage { return c.session.Transcript() }

func (c *Controller) CurrentRoll() *DiceRoll { return c.session.CurrentRoll() }

func (c *Controller) Timer() TimerState { return c.session.Timer() }

func (c *Controller) Turn() (string, string) { return c.session.Turn() }

func (c *Controller) CameraOn() bool { return c.mediaEnabled(media.KindCamera) }

func (c *Controller) MicOn() bool { return c.mediaEnabled(media.KindMic) }

// Notices drains accumulated user-facing notices (toasts).
func (c *Controller) Notices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

// Updates signals that derived state changed and a re-render is due. The
// channel coalesces bursts into a single pending notification.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.notifyUpdate()
}

func (c *Controller) addNotice(notice string) {
	c.mu.Lock()
	c.notices = append(c.notices, notice)
	c.mu.Unlock()
	c.notifyUpdate()
}

func (c *Controller) appendSystem(text string) {
	c.session.AppendChat(ChatMessage{
		ID:          uuid.New().String(),
		Content:     text,
		TimestampMs: time.Now().UnixMilli(),
		Kind:        KindSystem,
	})
}

func (c *Controller) appendGameAction(senderID, senderName, text string) {
	c.session.AppendChat(ChatMessage{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		SenderName:  senderName,
		Content:     text,
		TimestampMs: time.Now().UnixMilli(),
		Kind:        KindGameAction,
	})
}

func (c *Controller) notifyUpdate() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
