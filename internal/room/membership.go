package room

import (
	"log/slog"
	"sync"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
)

// LinkController is the slice of the peer connection manager the tracker
// drives: one link per tracked remote participant.
type LinkController interface {
	EnsureLink(participantID string, initiator bool) error
	TeardownLink(participantID string)
}

// Tracker keeps the participant set authoritative. It is driven by
// player_joined / player_left events which carry the full current roster,
// so every update is a wholesale replacement: diffing the full list on each
// event trades a little work for immunity to missed delta messages on a
// best-effort channel.
type Tracker struct {
	selfID string
	links  LinkController

	mu           sync.RWMutex
	participants map[string]*Participant
}

func NewTracker(selfID string, links LinkController) *Tracker {
	return &Tracker{
		selfID:       selfID,
		links:        links,
		participants: make(map[string]*Participant),
	}
}

// ApplyRoster replaces the tracked set with the full roster from a
// player_joined or player_left event. joined identifies the player the event
// announced, when it was a join; only toward that player do we initiate the
// peer connection, because we observed them arriving. Everyone else who is
// newly present either pre-dates us (they observed us join and will send the
// offer) or was missed entirely, in which case we wait for their offer.
func (t *Tracker) ApplyRoster(joined *signaling.Player, roster []signaling.Player) {
	t.mu.Lock()

	next := make(map[string]*Participant, len(roster))
	var added []string
	for _, p := range roster {
		if p.ID == t.selfID {
			continue
		}
		if existing, ok := t.participants[p.ID]; ok {
			existing.DisplayName = p.Name
			existing.AvatarURL = p.Avatar
			existing.IsHost = p.IsHost
			next[p.ID] = existing
			continue
		}
		next[p.ID] = participantFromWire(p)
		added = append(added, p.ID)
	}

	var removed []string
	for id := range t.participants {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}

	t.participants = next
	t.mu.Unlock()

	for _, id := range added {
		initiator := joined != nil && joined.ID == id
		if err := t.links.EnsureLink(id, initiator); err != nil {
			slog.Warn("failed to set up peer link", "participant", id, "err", err)
		}
	}
	for _, id := range removed {
		t.links.TeardownLink(id)
	}
}

// Participants returns the tracked remote participants. The local player is
// never among them.
func (t *Tracker) Participants() []*Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Participant, 0, len(t.participants))
	for _, p := range t.participants {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Get returns a copy of one tracked participant, or nil.
func (t *Tracker) Get(id string) *Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.participants[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// SetAVStatus records camera/mic state for the participant with the given
// display name. The wire protocol keys AV status by player name, not id.
func (t *Tracker) SetAVStatus(displayName string, kind string, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.participants {
		if p.DisplayName != displayName {
			continue
		}
		switch kind {
		case "camera":
			p.CameraOn = on
		case "mic":
			p.MicOn = on
		}
		return
	}
}

// Clear drops every tracked participant and tears down their links.
func (t *Tracker) Clear() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.participants))
	for id := range t.participants {
		ids = append(ids, id)
	}
	t.participants = make(map[string]*Participant)
	t.mu.Unlock()

	for _, id := range ids {
		t.links.TeardownLink(id)
	}
}
