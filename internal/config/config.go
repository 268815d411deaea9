package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the room client needs to reach the Shuffle & Sync
// backend: the server base URL, the local player's identity, and the ICE
// servers used for peer negotiation. Values come from the environment with
// CLI flags taking precedence.
type Config struct {
	// Server is the base URL of the Shuffle & Sync deployment. The signaling
	// scheme follows it: an https server means wss signaling.
	Server string `env:"SHUFFLESYNC_SERVER" envDefault:"https://play.shufflesync.app"`

	DisplayName string `env:"SHUFFLESYNC_NAME"`
	AvatarURL   string `env:"SHUFFLESYNC_AVATAR"`

	// STUNServers are the public STUN endpoints used for candidate discovery.
	// There is no TURN fallback; connectivity is pure peer-to-peer.
	STUNServers []string `env:"SHUFFLESYNC_STUN" envSeparator:"," envDefault:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"`

	// Media capture toggles, for machines without a camera or microphone.
	DisableAudio bool `env:"SHUFFLESYNC_NO_AUDIO" envDefault:"false"`
	DisableVideo bool `env:"SHUFFLESYNC_NO_VIDEO" envDefault:"false"`
}

// Options carries CLI flag overrides. Empty fields fall back to the
// environment, then to the defaults.
type Options struct {
	Server       string
	DisplayName  string
	AvatarURL    string
	STUNServer   string
	DisableAudio bool
	DisableVideo bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if opts.Server != "" {
		cfg.Server = opts.Server
	}
	if opts.DisplayName != "" {
		cfg.DisplayName = opts.DisplayName
	}
	if opts.AvatarURL != "" {
		cfg.AvatarURL = opts.AvatarURL
	}
	if opts.STUNServer != "" {
		cfg.STUNServers = []string{opts.STUNServer}
	}
	if opts.DisableAudio {
		cfg.DisableAudio = true
	}
	if opts.DisableVideo {
		cfg.DisableVideo = true
	}

	if _, err := url.Parse(cfg.Server); err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", cfg.Server, err)
	}

	return &cfg, nil
}

// SignalingURL returns the websocket endpoint derived from the server URL.
// TLS-backed servers get TLS-backed signaling.
func (c *Config) SignalingURL() string {
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" {
		return "wss://" + strings.TrimPrefix(c.Server, "https://") + "/ws"
	}

	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host)
}

// APIBaseURL returns the REST base for the game-sessions resource.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.Server, "/")
}
