package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/tickwire/internal/wire"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrMessageTooLarge = errors.New("message too large")
	ErrSendQueueFull   = errors.New("send queue limit reached")
	ErrClosed          = errors.New("client closed")
)

// Config configures a Client.
type Config struct {
	MaxMessageSize    int           // Largest payload in either direction (bytes)
	SendQueueLimit    int           // Outbound messages allowed before the connection is closed
	ReceiveQueueLimit int           // Inbound events allowed before the connection is closed
	DisableNoDelay    bool          // Re-enable Nagle's algorithm (off by default)
	SendTimeout       time.Duration // Write deadline per batch (0 = default, < 0 = none)
	ReceiveTimeout    time.Duration // Read deadline per message (0 = none)
	ConnectTimeout    time.Duration // Dial timeout (0 = until cancelled)
	Transport         wire.Kind     // "tcp" (length-prefixed) or "websocket"
	WebSocketPath     string        // Request path for the websocket upgrade
	UserAgent         string        // User-Agent header for the websocket upgrade
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize:    16 * 1024,
		SendQueueLimit:    1000,
		ReceiveQueueLimit: 10000,
		SendTimeout:       5 * time.Second,
		Transport:         wire.KindTCP,
		WebSocketPath:     "/",
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendQueueLimit == 0 {
		c.SendQueueLimit = d.SendQueueLimit
	}
	if c.ReceiveQueueLimit == 0 {
		c.ReceiveQueueLimit = d.ReceiveQueueLimit
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.WebSocketPath == "" {
		c.WebSocketPath = d.WebSocketPath
	}
	return c
}

func (c Config) validate() error {
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("max message size must be >= 1, got %d", c.MaxMessageSize)
	}
	if c.SendQueueLimit < 1 {
		return fmt.Errorf("send queue limit must be >= 1, got %d", c.SendQueueLimit)
	}
	if c.ReceiveQueueLimit < 1 {
		return fmt.Errorf("receive queue limit must be >= 1, got %d", c.ReceiveQueueLimit)
	}
	switch c.Transport {
	case wire.KindTCP, wire.KindWebSocket:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

func (c Config) wireOptions() wire.Options {
	return wire.Options{
		MaxMessageSize:    c.MaxMessageSize,
		ReceiveQueueLimit: c.ReceiveQueueLimit,
		SendTimeout:       c.SendTimeout,
		ReceiveTimeout:    c.ReceiveTimeout,
	}
}

// Handlers are the callbacks Tick dispatches to. Nil handlers are skipped.
type Handlers struct {
	OnConnected    func()
	OnData         func(data []byte) // data is only valid during the call
	OnDisconnected func()
}
