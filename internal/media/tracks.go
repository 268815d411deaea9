package media

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Kind distinguishes the two local capture tracks.
type Kind string

const (
	KindMic    Kind = "mic"
	KindCamera Kind = "camera"
)

// Track wraps a single local media track shared across every peer link.
// Toggling enabled mutes the one shared track, which is why a camera or mic
// toggle reaches all peers at once and never triggers renegotiation: samples
// are simply dropped while the track is disabled, the track itself stays
// attached.
type Track struct {
	kind    Kind
	local   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
}

func newTrack(kind Kind, codec webrtc.RTPCodecCapability, streamID string) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codec, string(kind), streamID)
	if err != nil {
		return nil, err
	}

	t := &Track{kind: kind, local: local}
	t.enabled.Store(true)
	return t, nil
}

func (t *Track) Kind() Kind { return t.kind }

// Local exposes the attachable pion track.
func (t *Track) Local() webrtc.TrackLocal { return t.local }

func (t *Track) Enabled() bool { return t.enabled.Load() }

func (t *Track) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

// WriteSample forwards one captured sample to every attached peer. Samples
// written while the track is disabled are silently discarded.
func (t *Track) WriteSample(s media.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.local.WriteSample(s)
}

// Devices owns the local capture tracks for the lifetime of a room visit.
type Devices struct {
	tracks map[Kind]*Track
}

// Open creates the local mic (Opus) and camera (VP8) tracks. Either can be
// disabled up front for machines without capture hardware; the room proceeds
// without that media.
func Open(audio, video bool) (*Devices, error) {
	streamID := uuid.New().String()
	d := &Devices{tracks: make(map[Kind]*Track)}

	if audio {
		mic, err := newTrack(KindMic, webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  2,
		}, streamID)
		if err != nil {
			return nil, err
		}
		d.tracks[KindMic] = mic
	}

	if video {
		cam, err := newTrack(KindCamera, webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		}, streamID)
		if err != nil {
			return nil, err
		}
		d.tracks[KindCamera] = cam
	}

	return d, nil
}

// Tracks returns every open local track, for attaching to a new peer link.
func (d *Devices) Tracks() []*Track {
	out := make([]*Track, 0, len(d.tracks))
	if t, ok := d.tracks[KindMic]; ok {
		out = append(out, t)
	}
	if t, ok := d.tracks[KindCamera]; ok {
		out = append(out, t)
	}
	return out
}

// Track returns the track of the given kind, or nil when capture for that
// kind was disabled at open time.
func (d *Devices) Track(kind Kind) *Track {
	return d.tracks[kind]
}

// SetEnabled toggles the shared track of the given kind. Returns the new
// state, or false when no such track is open.
func (d *Devices) SetEnabled(kind Kind, enabled bool) bool {
	t, ok := d.tracks[kind]
	if !ok {
		return false
	}
	t.SetEnabled(enabled)
	return enabled
}

// Enabled reports whether the track of the given kind is live.
func (d *Devices) Enabled(kind Kind) bool {
	t, ok := d.tracks[kind]
	return ok && t.Enabled()
}
