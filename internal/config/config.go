// Package config holds the client application configuration.
package config

import (
	"fmt"
	"os"
)

// Default configuration values (production).
const (
	DefaultDomain   = "fool-p2p-app.onrender.com"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // no TURN by default; direct P2P only
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds the resolved application configuration.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// WebSocketURL is constructed from Domain.
	WebSocketURL string

	// ICE servers for the peer transport.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// PlayerName is the label shown in the room roster.
	PlayerName string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	PlayerName string
}

// Load reads configuration with the following priority:
// CLI flags > environment variables > hardcoded defaults.
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("FOOL_DOMAIN"), DefaultDomain)
	stun := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turn := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	player := firstOf(opts.PlayerName, os.Getenv("FOOL_PLAYER_NAME"))
	if player == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("no player name and no hostname: %w", err)
		}
		player = host
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("wss://%s/ws", domain),
		STUNServer:   stun,
		TURNServer:   turn,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		PlayerName:   player,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs for the transport.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
