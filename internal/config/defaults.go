package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost               = "127.0.0.1"
	DefaultTransport          = "tcp"
	DefaultWebSocketPath      = "/"
	DefaultMaxMessageSize     = 16 * 1024
	DefaultSendQueueLimit     = 1000
	DefaultReceiveQueueLimit  = 10000
	DefaultSendTimeout        = 5 * time.Second
	DefaultTickInterval       = 10 * time.Millisecond
	DefaultTickLimit          = 1000
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.Host == "" {
		c.Client.Host = DefaultHost
	}
	if c.Client.Transport == "" {
		c.Client.Transport = DefaultTransport
	}
	if c.Client.WebSocketPath == "" {
		c.Client.WebSocketPath = DefaultWebSocketPath
	}
	if c.Client.MaxMessageSize == 0 {
		c.Client.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.Client.SendQueueLimit == 0 {
		c.Client.SendQueueLimit = DefaultSendQueueLimit
	}
	if c.Client.ReceiveQueueLimit == 0 {
		c.Client.ReceiveQueueLimit = DefaultReceiveQueueLimit
	}
	if c.Client.SendTimeout == 0 {
		c.Client.SendTimeout = DefaultSendTimeout
	}

	// Tick defaults
	if c.Tick.Interval == 0 {
		c.Tick.Interval = DefaultTickInterval
	}
	if c.Tick.Limit == 0 {
		c.Tick.Limit = DefaultTickLimit
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
