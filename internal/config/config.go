// Package config loads tickwire client configuration from YAML or TOML files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/tickwire/internal/connection"
	"github.com/rickgao/tickwire/internal/wire"
)

// Config is the root configuration of the tickwire client.
type Config struct {
	Client    ClientConfig    `yaml:"client" toml:"client"`
	Tick      TickConfig      `yaml:"tick" toml:"tick"`
	Reconnect ReconnectConfig `yaml:"reconnect" toml:"reconnect"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ClientConfig holds the server address and connection tunables.
type ClientConfig struct {
	Host              string        `yaml:"host" toml:"host"`
	Port              int           `yaml:"port" toml:"port"`
	Transport         string        `yaml:"transport" toml:"transport"`
	WebSocketPath     string        `yaml:"websocket_path" toml:"websocket_path"`
	MaxMessageSize    int           `yaml:"max_message_size" toml:"max_message_size"`
	SendQueueLimit    int           `yaml:"send_queue_limit" toml:"send_queue_limit"`
	ReceiveQueueLimit int           `yaml:"receive_queue_limit" toml:"receive_queue_limit"`
	DisableNoDelay    bool          `yaml:"disable_nodelay" toml:"disable_nodelay"`
	SendTimeout       time.Duration `yaml:"send_timeout" toml:"send_timeout"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout" toml:"receive_timeout"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
}

// TickConfig controls how often and how much the consumer drains.
type TickConfig struct {
	Interval time.Duration `yaml:"interval" toml:"interval"`
	Limit    int           `yaml:"limit" toml:"limit"`
}

// ReconnectConfig holds the caller-side reconnect policy.
type ReconnectConfig struct {
	Disabled   bool          `yaml:"disabled" toml:"disabled"`
	BaseDelay  time.Duration `yaml:"base_delay" toml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay" toml:"max_delay"`
	MaxElapsed time.Duration `yaml:"max_elapsed" toml:"max_elapsed"` // 0 = retry forever
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "text" or "json"
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Port    int    `yaml:"port" toml:"port"`
	Path    string `yaml:"path" toml:"path"`
}

// ConnectionConfig converts the client section into a connection.Config.
func (c *ClientConfig) ConnectionConfig() connection.Config {
	return connection.Config{
		MaxMessageSize:    c.MaxMessageSize,
		SendQueueLimit:    c.SendQueueLimit,
		ReceiveQueueLimit: c.ReceiveQueueLimit,
		DisableNoDelay:    c.DisableNoDelay,
		SendTimeout:       c.SendTimeout,
		ReceiveTimeout:    c.ReceiveTimeout,
		ConnectTimeout:    c.ConnectTimeout,
		Transport:         wire.Kind(c.Transport),
		WebSocketPath:     c.WebSocketPath,
	}
}

// SlogLevel parses the configured level.
func (l *LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", l.Level)
	}
}
