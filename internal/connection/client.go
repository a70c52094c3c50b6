package connection

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rickgao/tickwire/internal/metrics"
	"github.com/rickgao/tickwire/internal/pipe"
)

// Client manages one outbound connection and the queues around it.
//
// Connect, Disconnect, Send and the inspection methods are safe from any
// goroutine. Tick must only be called from a single consumer goroutine.
type Client struct {
	cfg      Config
	handlers Handlers
	logger   *slog.Logger

	// inbound outlives individual connections.
	inbound *pipe.ReceivePipe

	mu     sync.Mutex // serializes Connect, Disconnect and Close
	state  atomic.Pointer[connState]
	closed atomic.Bool
}

// NewClient creates a disconnected client.
func NewClient(cfg Config, h Handlers, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	inbound, err := pipe.NewReceivePipe(cfg.MaxMessageSize, cfg.ReceiveQueueLimit)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		handlers: h,
		logger:   logger,
		inbound:  inbound,
	}, nil
}

// Connect starts connecting to host:port and returns immediately. It does
// nothing while a connection is being established or is up. The outcome is
// reported through Tick: OnConnected on success, OnDisconnected on failure.
//
// The new attempt dials only after the goroutines of the attempt it replaces
// have exited, so every event of the old attempt is queued before any event
// of the new one.
func (c *Client) Connect(host string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		c.logger.Warn("connect on closed client ignored")
		return
	}

	var prevDone <-chan struct{}
	if prev := c.state.Load(); prev != nil {
		if prev.connecting.Load() || prev.connected() {
			return
		}
		// Its goroutines are already on their way out.
		prev.dispose()
		prevDone = prev.done
	}

	st := newConnState(c.cfg.SendQueueLimit, c.inbound)
	st.prevDone = prevDone
	st.connecting.Store(true)
	c.state.Store(st)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger := c.logger.With("conn_id", st.id, "addr", addr)
	cfg := c.cfg

	metrics.ConnectAttempts.Inc()
	logger.Debug("connecting")

	st.done = st.tmb.Dead()
	st.tmb.Go(func() error {
		runReceiver(st, addr, cfg, logger)
		return nil
	})
}

// Disconnect closes the current connection, or abandons the attempt in
// progress. Messages not yet sent are dropped; received events stay queued
// for Tick. It never waits for the connection's goroutines to exit.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

func (c *Client) disconnectLocked() {
	st := c.state.Load()
	if st == nil {
		return
	}
	if !st.connecting.Load() && !st.connected() {
		return
	}

	st.dispose()
	metrics.Disconnects.WithLabelValues(metrics.ReasonLocal).Inc()
	c.logger.Info("disconnected", "conn_id", st.id)
}

// Send queues payload for the send goroutine and never blocks on the network.
// The payload is copied, so the caller may reuse it.
//
// If the send queue is already at SendQueueLimit the peer is not keeping up:
// the connection is closed and ErrSendQueueFull returned.
func (c *Client) Send(payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	st := c.state.Load()
	if st == nil || !st.connected() {
		metrics.SendRejections.WithLabelValues(metrics.RejectNotConnected).Inc()
		return ErrNotConnected
	}

	if len(payload) > c.cfg.MaxMessageSize {
		metrics.SendRejections.WithLabelValues(metrics.RejectTooLarge).Inc()
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), c.cfg.MaxMessageSize)
	}

	select {
	case st.outbound <- bytes.Clone(payload):
		return nil
	default:
	}

	metrics.SendRejections.WithLabelValues(metrics.RejectQueueFull).Inc()
	metrics.SendQueueOverflows.Inc()
	st.sendOverflow.Store(true)
	st.closeConn()

	c.logger.Warn("send queue limit reached, closing connection",
		"conn_id", st.id,
		"limit", c.cfg.SendQueueLimit,
	)
	return ErrSendQueueFull
}

// Connected reports whether a socket is currently attached.
func (c *Client) Connected() bool {
	st := c.state.Load()
	return st != nil && st.connected()
}

// Connecting reports whether a connection attempt is in progress.
func (c *Client) Connecting() bool {
	st := c.state.Load()
	return st != nil && st.connecting.Load()
}

// Pending returns the number of received events waiting for Tick.
func (c *Client) Pending() int {
	return c.inbound.Count()
}

// Stats returns statistics of the inbound queue.
func (c *Client) Stats() pipe.Stats {
	return c.inbound.Stats()
}

// Close disconnects and releases the inbound queue. The client cannot be
// used afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed.Swap(true) {
		c.mu.Unlock()
		return
	}
	c.disconnectLocked()
	c.mu.Unlock()

	c.inbound.Close()
}
