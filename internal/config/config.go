package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values.
const (
	DefaultDomain = "localhost:8080"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Config holds client configuration.
type Config struct {
	// Domain is the signaling server host[:port].
	Domain string

	// WebSocketURL is constructed from the domain.
	WebSocketURL string

	// ICE servers for the negotiation engine.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts candidates to TURN relays.
	ForceRelay bool

	// Label is the chat sender label override.
	Label string

	// OutputDir is where received files are saved.
	OutputDir string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	Secure     bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Label      string
	OutputDir  string
}

// Load reads configuration with the priority CLI flags > environment >
// defaults.
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"))
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"))
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"))

	scheme := "ws"
	if opts.Secure {
		scheme = "wss"
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, domain),
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,
		Label:        opts.Label,
		OutputDir:    outputDir,
	}, nil
}

// GetSTUNServers returns STUN server URLs.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. The configured
// value may be given with or without the turn: scheme.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
