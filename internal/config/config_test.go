package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("SHUFFLESYNC_SERVER", "https://env.example.com")
		t.Setenv("SHUFFLESYNC_NAME", "EnvName")

		cfg, err := Load(Options{Server: "http://flag.example.com"})
		require.NoError(t, err)

		assert.Equal(t, "http://flag.example.com", cfg.Server)
		assert.Equal(t, "EnvName", cfg.DisplayName)
	})

	t.Run("defaults apply", func(t *testing.T) {
		cfg, err := Load(Options{})
		require.NoError(t, err)

		assert.Equal(t, "https://play.shufflesync.app", cfg.Server)
		assert.NotEmpty(t, cfg.STUNServers)
	})

	t.Run("stun flag replaces list", func(t *testing.T) {
		cfg, err := Load(Options{STUNServer: "stun:stun.example.com:3478"})
		require.NoError(t, err)

		assert.Equal(t, []string{"stun:stun.example.com:3478"}, cfg.STUNServers)
	})
}

func TestSignalingURLFollowsServerScheme(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"https gets wss", "https://play.shufflesync.app", "wss://play.shufflesync.app/ws"},
		{"http gets ws", "http://localhost:8080", "ws://localhost:8080/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: tt.server}
			assert.Equal(t, tt.want, cfg.SignalingURL())
		})
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := &Config{Server: "http://localhost:8080/"}
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL())
}
