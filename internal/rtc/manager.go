package rtc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/media"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

// Signaler is how the manager pushes negotiation messages back out. The room
// controller implements it on top of the signaling channel.
type Signaler interface {
	SendOffer(targetID string, offer signaling.SessionDescription)
	SendAnswer(targetID string, answer signaling.SessionDescription)
	SendCandidate(targetID string, candidate json.RawMessage)
}

// Manager owns one PeerLink per remote participant. The collection lives and
// dies with the manager instance; tearing the manager down closes every link.
type Manager struct {
	signaler   Signaler
	devices    *media.Devices
	iceServers []webrtc.ICEServer

	mu    sync.Mutex
	links map[string]*PeerLink

	onRemoteTrack func(participantID string, track *webrtc.TrackRemote)
	onLinkState   func(participantID string, state LinkState)
}

// NewManager creates a manager negotiating through the given signaler with
// the given STUN servers. devices may be nil when running without capture.
func NewManager(signaler Signaler, devices *media.Devices, stunServers []string) *Manager {
	var ice []webrtc.ICEServer
	if len(stunServers) > 0 {
		ice = []webrtc.ICEServer{{URLs: stunServers}}
	}

	return &Manager{
		signaler:   signaler,
		devices:    devices,
		iceServers: ice,
		links:      make(map[string]*PeerLink),
	}
}

// OnRemoteTrack registers a callback for media arriving from any peer.
func (m *Manager) OnRemoteTrack(fn func(participantID string, track *webrtc.TrackRemote)) {
	m.onRemoteTrack = fn
}

// OnLinkState registers a callback for link state transitions.
func (m *Manager) OnLinkState(fn func(participantID string, state LinkState)) {
	m.onLinkState = fn
}

// EnsureLink returns the existing link for the participant or creates one.
// When initiator is true this side creates and sends the offer; otherwise
// the link waits for the remote offer.
func (m *Manager) EnsureLink(participantID string, initiator bool) (*PeerLink, error) {
	m.mu.Lock()
	if link, ok := m.links[participantID]; ok {
		m.mu.Unlock()
		return link, nil
	}
	m.mu.Unlock()

	link, err := m.createLink(participantID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// A concurrent EnsureLink may have won the race.
	if existing, ok := m.links[participantID]; ok {
		m.mu.Unlock()
		link.pc.Close()
		return existing, nil
	}
	m.links[participantID] = link
	m.mu.Unlock()

	if initiator {
		if err := m.sendOffer(link); err != nil {
			m.TeardownLink(participantID)
			return nil, err
		}
	}

	return link, nil
}

func (m *Manager) createLink(participantID string) (*PeerLink, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: m.iceServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	link := &PeerLink{participantID: participantID, pc: pc, state: LinkNew}

	if m.devices != nil {
		for _, t := range m.devices.Tracks() {
			if _, err := pc.AddTrack(t.Local()); err != nil {
				pc.Close()
				return nil, fmt.Errorf("attach local track: %w", err)
			}
		}
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		link.addRemoteTrack(track)
		if m.onRemoteTrack != nil {
			m.onRemoteTrack(participantID, track)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		m.signaler.SendCandidate(participantID, raw)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			m.transition(link, LinkConnected)
		case webrtc.PeerConnectionStateFailed:
			m.transition(link, LinkFailed)
		}
	})

	return link, nil
}

func (m *Manager) transition(link *PeerLink, state LinkState) {
	if !link.setState(state) {
		return
	}
	if m.onLinkState != nil {
		m.onLinkState(link.participantID, state)
	}
}

func (m *Manager) sendOffer(link *PeerLink) error {
	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	m.transition(link, LinkOffering)

	local := link.pc.LocalDescription()
	m.signaler.SendOffer(link.participantID, signaling.SessionDescription{
		Type: local.Type.String(),
		SDP:  local.SDP,
	})
	return nil
}

// AcceptOffer handles a webrtc_offer from a participant: sets the remote
// description, generates an answer, and sends it back through signaling.
func (m *Manager) AcceptOffer(participantID string, offer signaling.SessionDescription) error {
	link, err := m.EnsureLink(participantID, false)
	if err != nil {
		return err
	}

	m.transition(link, LinkAnswering)

	if err := link.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	local := link.pc.LocalDescription()
	m.signaler.SendAnswer(participantID, signaling.SessionDescription{
		Type: local.Type.String(),
		SDP:  local.SDP,
	})
	return nil
}

// AcceptAnswer applies a received answer to the matching link.
func (m *Manager) AcceptAnswer(participantID string, answer signaling.SessionDescription) error {
	link := m.link(participantID)
	if link == nil {
		return fmt.Errorf("answer from %s with no link", participantID)
	}

	return link.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
}

// AddRemoteCandidate applies a trickled ICE candidate to the matching link.
// A candidate arriving before its link exists is a protocol violation and is
// dropped with a warning.
func (m *Manager) AddRemoteCandidate(participantID string, candidate json.RawMessage) {
	link := m.link(participantID)
	if link == nil {
		slog.Warn("ICE candidate for unknown peer, dropping", "participant", participantID)
		return
	}

	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		slog.Warn("unparseable ICE candidate", "participant", participantID, "err", err)
		return
	}
	if err := link.pc.AddICECandidate(init); err != nil {
		slog.Warn("failed to add ICE candidate", "participant", participantID, "err", err)
	}
}

// TeardownLink closes and removes the participant's link. Idempotent.
func (m *Manager) TeardownLink(participantID string) {
	m.mu.Lock()
	link, ok := m.links[participantID]
	if ok {
		delete(m.links, participantID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	link.setState(LinkClosed)
	link.pc.Close()
}

// CloseAll tears down every link. Idempotent.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[string]*PeerLink)
	m.mu.Unlock()

	for _, link := range links {
		link.setState(LinkClosed)
		link.pc.Close()
	}
}

// Link returns the link for a participant, or nil.
func (m *Manager) Link(participantID string) *PeerLink {
	return m.link(participantID)
}

// LinkIDs returns the participant ids with a live link, for reconciliation
// checks and display.
func (m *Manager) LinkIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.links))
	for id := range m.links {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) link(participantID string) *PeerLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[participantID]
}

// SetTrackEnabled toggles the shared local track of the given kind. The
// track stays attached to every link; no renegotiation happens.
func (m *Manager) SetTrackEnabled(kind media.Kind, enabled bool) bool {
	if m.devices == nil {
		return false
	}
	return m.devices.SetEnabled(kind, enabled)
}
