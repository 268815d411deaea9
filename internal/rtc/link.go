package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// LinkState is the lifecycle of one peer link.
// new -> offering|answering -> connected -> failed|closed. The last two are
// terminal; there is no automatic retry.
type LinkState int

const (
	LinkNew LinkState = iota
	LinkOffering
	LinkAnswering
	LinkConnected
	LinkFailed
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkNew:
		return "new"
	case LinkOffering:
		return "offering"
	case LinkAnswering:
		return "answering"
	case LinkConnected:
		return "connected"
	case LinkFailed:
		return "failed"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerLink is the peer-to-peer media connection for one remote participant.
// At most one exists per participant id at any time.
type PeerLink struct {
	participantID string
	pc            *webrtc.PeerConnection

	mu           sync.Mutex
	state        LinkState
	remoteTracks []*webrtc.TrackRemote
}

func (l *PeerLink) ParticipantID() string { return l.participantID }

func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// RemoteTracks returns the media tracks received from the remote peer so far.
func (l *PeerLink) RemoteTracks() []*webrtc.TrackRemote {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*webrtc.TrackRemote, len(l.remoteTracks))
	copy(out, l.remoteTracks)
	return out
}

// setState transitions the link, refusing to leave a terminal state.
func (l *PeerLink) setState(s LinkState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkFailed || l.state == LinkClosed {
		return false
	}
	l.state = s
	return true
}

func (l *PeerLink) addRemoteTrack(t *webrtc.TrackRemote) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remoteTracks = append(l.remoteTracks, t)
}
