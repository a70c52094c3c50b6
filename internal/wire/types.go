package wire

import (
	"errors"
	"time"
)

// Errors
var (
	ErrInvalidHeader    = errors.New("invalid message header")
	ErrReceiveQueueFull = errors.New("receive queue limit reached")
)

// HeaderSize is the length prefix size of the framed transport.
const HeaderSize = 4

// Kind selects the framing used on top of the TCP connection.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
)

// Options configures a Transport and the loops running on it.
type Options struct {
	MaxMessageSize    int           // Largest payload accepted in either direction
	ReceiveQueueLimit int           // Inbound events allowed before the receive loop gives up
	SendTimeout       time.Duration // Write deadline per batch (<= 0 = none)
	ReceiveTimeout    time.Duration // Read deadline per message (0 = none)
}

// Transport reads and writes whole messages over an open connection.
type Transport interface {
	// ReadMessage blocks until one message has been read into buf and
	// returns its length. buf must hold MaxMessageSize bytes.
	ReadMessage(buf []byte) (int, error)

	// WriteMessages writes msgs in order.
	WriteMessages(msgs [][]byte) error

	// Close closes the underlying connection, unblocking pending I/O.
	Close() error
}
