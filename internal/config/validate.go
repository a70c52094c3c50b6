package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Client.validate(); err != nil {
		return err
	}

	if c.Tick.Interval <= 0 {
		return errors.New("tick.interval must be > 0")
	}
	if c.Tick.Limit < 1 {
		return errors.New("tick.limit must be >= 1")
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.BaseDelay > c.Reconnect.MaxDelay {
		return fmt.Errorf("reconnect.base_delay (%s) cannot exceed max_delay (%s)", c.Reconnect.BaseDelay, c.Reconnect.MaxDelay)
	}
	if c.Reconnect.MaxElapsed < 0 {
		return errors.New("reconnect.max_elapsed must be >= 0")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
		}
	}

	return nil
}

func (c *ClientConfig) validate() error {
	if c.Host == "" {
		return errors.New("client.host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("client.port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Transport {
	case "tcp", "websocket":
	default:
		return fmt.Errorf("client.transport must be tcp or websocket, got %q", c.Transport)
	}
	if c.Transport == "websocket" && !strings.HasPrefix(c.WebSocketPath, "/") {
		return fmt.Errorf("client.websocket_path must start with /, got %q", c.WebSocketPath)
	}
	if c.MaxMessageSize < 1 {
		return errors.New("client.max_message_size must be >= 1")
	}
	if c.SendQueueLimit < 1 {
		return errors.New("client.send_queue_limit must be >= 1")
	}
	if c.ReceiveQueueLimit < 1 {
		return errors.New("client.receive_queue_limit must be >= 1")
	}
	if c.SendTimeout < 0 || c.ReceiveTimeout < 0 || c.ConnectTimeout < 0 {
		return errors.New("client timeouts must be >= 0")
	}
	return nil
}
