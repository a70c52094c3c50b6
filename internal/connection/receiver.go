package connection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/rickgao/tickwire/internal/metrics"
	"github.com/rickgao/tickwire/internal/pipe"
	"github.com/rickgao/tickwire/internal/wire"
)

// runReceiver is the body of a connection attempt's receive goroutine: dial,
// start the send goroutine, then read until the connection ends.
func runReceiver(st *connState, addr string, cfg Config, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("receive goroutine panicked", "panic", r)
		}
		st.cleanup()
	}()

	if st.prevDone != nil {
		select {
		case <-st.prevDone:
		case <-st.ctx.Done():
			logger.Debug("disconnected while previous connection was exiting")
			return
		}
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(st.ctx, "tcp", addr)
	if err != nil {
		connectFailed(st, logger, "connect failed", err)
		return
	}

	if !st.attach(conn) {
		// Disconnect won the race with the dial.
		conn.Close()
		logger.Debug("dial completed after disconnect, dropping connection")
		return
	}
	st.connecting.Store(false)

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(!cfg.DisableNoDelay); err != nil {
			logger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}

	t, err := openTransport(st.ctx, conn, addr, cfg)
	if err != nil {
		connectFailed(st, logger, "handshake failed", err)
		return
	}

	metrics.ConnectionsEstablished.Inc()
	logger.Info("connected", "transport", cfg.Transport)

	st.tmb.Go(func() error {
		runSender(st, t, cfg, logger)
		return nil
	})

	metrics.ActiveConnections.Inc()
	err = wire.ReceiveLoop(st.ctx, t, st.inbound, cfg.wireOptions())
	metrics.ActiveConnections.Dec()

	logExit(logger, "receive loop ended", err)
	recordDisconnect(st, err)
}

// runSender is the body of the send goroutine. Any exit closes the socket,
// which in turn ends the receive loop.
func runSender(st *connState, t wire.Transport, cfg Config, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("send goroutine panicked", "panic", r)
		}
		st.closeConn()
	}()

	err := wire.SendLoop(st.ctx, t, st.outbound, cfg.SendQueueLimit)
	logExit(logger, "send loop ended", err)
}

func openTransport(ctx context.Context, conn net.Conn, addr string, cfg Config) (wire.Transport, error) {
	if cfg.Transport != wire.KindWebSocket {
		return wire.NewFramed(conn, cfg.wireOptions()), nil
	}

	header := http.Header{}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}
	return wire.DialWebSocket(ctx, conn, "ws://"+addr+cfg.WebSocketPath, cfg.wireOptions(), header)
}

// connectFailed reports an attempt that never produced a connection. When
// the attempt was cancelled by Disconnect the error is only an artifact of
// the teardown and no event is queued.
func connectFailed(st *connState, logger *slog.Logger, msg string, err error) {
	if st.ctx.Err() != nil {
		logger.Debug(msg+" during disconnect", "error", err)
		return
	}

	logger.Info(msg, "error", err)
	metrics.ConnectFailures.Inc()
	metrics.Disconnects.WithLabelValues(metrics.ReasonConnectFailed).Inc()

	if err := st.inbound.Enqueue(context.Background(), pipe.Disconnected, nil); err != nil {
		logger.Debug("failed to queue disconnect event", "error", err)
	}
}

func recordDisconnect(st *connState, err error) {
	switch {
	case st.isDisposed():
		// Counted by Disconnect.
	case errors.Is(err, wire.ErrReceiveQueueFull):
		metrics.Disconnects.WithLabelValues(metrics.ReasonRecvOverflow).Inc()
	case st.sendOverflow.Load():
		metrics.Disconnects.WithLabelValues(metrics.ReasonSendOverflow).Inc()
	default:
		metrics.Disconnects.WithLabelValues(metrics.ReasonRemote).Inc()
	}
}

func logExit(logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, wire.ErrReceiveQueueFull):
		logger.Warn(msg, "error", err)
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed), errors.Is(err, pipe.ErrPipeClosed):
		logger.Debug(msg, "error", err)
	case isExpectedExit(err):
		logger.Info(msg, "error", err)
	default:
		logger.Error(msg, "error", err)
	}
}

// isExpectedExit reports whether err is a normal way for a connection to end.
func isExpectedExit(err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, wire.ErrReceiveQueueFull) ||
		errors.Is(err, pipe.ErrPipeClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}
