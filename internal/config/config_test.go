package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOMAIN", "")
	t.Setenv("STUN_SERVER", "")
	t.Setenv("TURN_SERVER", "")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Empty(t, cfg.TURNServer)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, "stun:env.example.com", cfg.STUNServer, "env fills what flags leave empty")
}

func TestSecureSchemeAndTURN(t *testing.T) {
	cfg, err := Load(Options{
		Domain:     "meet.example.com",
		Secure:     true,
		TURNServer: "turn:turn.example.com",
		TURNUser:   "user",
		TURNPass:   "pass",
	})
	require.NoError(t, err)

	assert.Equal(t, "wss://meet.example.com/ws", cfg.WebSocketURL)

	turn := cfg.GetTURNServers()
	require.Len(t, turn, 3)
	assert.Equal(t, "turn:turn.example.com:3478?transport=udp", turn[0])
	assert.Equal(t, "turn:turn.example.com:3478?transport=tcp", turn[1])
	assert.Equal(t, "turns:turn.example.com:5349?transport=tcp", turn[2])

	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)
}

func TestTURNFromEnvironment(t *testing.T) {
	t.Setenv("TURN_SERVER", "turn:env-turn.example.com")
	t.Setenv("TURN_USERNAME", "env-user")
	t.Setenv("TURN_PASSWORD", "env-pass")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "turn:env-turn.example.com", cfg.TURNServer)
	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "env-user", user)
	assert.Equal(t, "env-pass", pass)
}
