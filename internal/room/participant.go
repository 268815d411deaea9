package room

import "github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"

// Participant is one player in the room as tracked locally. Created on a
// join event, removed on leave or connection loss.
type Participant struct {
	ID          string
	DisplayName string
	AvatarURL   string
	IsHost      bool

	// AV state as reported over camera_status / mic_status.
	CameraOn bool
	MicOn    bool
}

func participantFromWire(p signaling.Player) *Participant {
	return &Participant{
		ID:          p.ID,
		DisplayName: p.Name,
		AvatarURL:   p.Avatar,
		IsHost:      p.IsHost,
		CameraOn:    true,
		MicOn:       true,
	}
}
