package channel

import (
	"fmt"
	"strings"
	"time"
)

// ClosePolicy decides what a channel closure means when no terminal frame
// (success or error) was observed before it.
type ClosePolicy uint8

const (
	// CloseAmbiguous surfaces an unknown outcome and does not reload. The
	// server must send an explicit success frame to conclude an operation.
	CloseAmbiguous ClosePolicy = iota

	// CloseSucceeds treats the closure as success and reloads. Use it only
	// with servers that always close after completing the change.
	CloseSucceeds
)

// String returns the config-file spelling of the policy.
func (p ClosePolicy) String() string {
	switch p {
	case CloseAmbiguous:
		return "ambiguous"
	case CloseSucceeds:
		return "success"
	default:
		return fmt.Sprintf("ClosePolicy(%d)", uint8(p))
	}
}

// ParseClosePolicy parses "ambiguous" or "success". The empty string
// selects the default.
func ParseClosePolicy(s string) (ClosePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ambiguous", "unknown":
		return CloseAmbiguous, nil
	case "success", "succeeds":
		return CloseSucceeds, nil
	}
	return CloseAmbiguous, fmt.Errorf("channel: unknown close policy %q", s)
}

// Config holds the tunables of a Manager.
type Config struct {
	// HandshakeTimeout bounds the WebSocket opening handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds writing the request and the close frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// FirstFrameTimeout is how long to wait for the first status frame
	// after the request was sent. Zero disables the timer.
	// Default: 30 seconds.
	FirstFrameTimeout time.Duration

	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	// Default: 64KB.
	MaxMessageSize int64

	// ReadBufferSize and WriteBufferSize size the connection buffers.
	// Default: 4096 each.
	ReadBufferSize  int
	WriteBufferSize int

	// EventQueueSize is the capacity of the manager's event queue.
	// Default: 256.
	EventQueueSize int

	// ClosePolicy decides what a closure without a terminal frame means.
	// Default: CloseAmbiguous.
	ClosePolicy ClosePolicy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		FirstFrameTimeout: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EventQueueSize:    256,
		ClosePolicy:       CloseAmbiguous,
	}
}

// Clone returns a shallow copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithClosePolicy sets the close policy and returns the config for chaining.
func (c *Config) WithClosePolicy(p ClosePolicy) *Config {
	c.ClosePolicy = p
	return c
}

// WithFirstFrameTimeout sets the first-frame timeout and returns the config for chaining.
func (c *Config) WithFirstFrameTimeout(d time.Duration) *Config {
	c.FirstFrameTimeout = d
	return c
}

// WithHandshakeTimeout sets the handshake timeout and returns the config for chaining.
func (c *Config) WithHandshakeTimeout(d time.Duration) *Config {
	c.HandshakeTimeout = d
	return c
}

// normalize fills zero values that have no meaningful zero setting.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.FirstFrameTimeout < 0 {
		c.FirstFrameTimeout = 0
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = def.WriteBufferSize
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = def.EventQueueSize
	}
}
