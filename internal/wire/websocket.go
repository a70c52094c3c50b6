package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// webSocket carries one payload per binary WebSocket message.
type webSocket struct {
	conn *websocket.Conn
	opts Options
}

// DialWebSocket performs the WebSocket handshake over an already dialed
// connection. conn is owned by the returned Transport on success and closed
// on failure.
func DialWebSocket(ctx context.Context, conn net.Conn, url string, opts Options, header http.Header) (Transport, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return conn, nil
		},
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   opts.MaxMessageSize,
		WriteBufferSize:  opts.MaxMessageSize,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	return NewWebSocket(ws, opts), nil
}

// NewWebSocket wraps an established WebSocket connection.
func NewWebSocket(ws *websocket.Conn, opts Options) Transport {
	ws.SetReadLimit(int64(opts.MaxMessageSize))
	return &webSocket{conn: ws, opts: opts}
}

func (w *webSocket) ReadMessage(buf []byte) (int, error) {
	if w.opts.ReceiveTimeout > 0 {
		if err := w.conn.SetReadDeadline(time.Now().Add(w.opts.ReceiveTimeout)); err != nil {
			return 0, err
		}
	}

	for {
		typ, r, err := w.conn.NextReader()
		if err != nil {
			return 0, err
		}
		if typ != websocket.BinaryMessage {
			// Text frames are not part of the protocol; skip them.
			continue
		}

		// A short read means the message ended inside buf.
		n, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, nil
		}
		if err != nil {
			return 0, readLimitError(err)
		}

		// buf is full. The read limit is enforced per frame header, so a
		// fragmented message can still have more to come.
		if err := expectEnd(r); err != nil {
			return 0, err
		}
		return n, nil
	}
}

// expectEnd checks that r holds no more bytes of the current message.
func expectEnd(r io.Reader) error {
	var extra [1]byte
	_, err := io.ReadFull(r, extra[:])
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return fmt.Errorf("%w: message exceeds max size", ErrInvalidHeader)
	default:
		return readLimitError(err)
	}
}

func readLimitError(err error) error {
	if errors.Is(err, websocket.ErrReadLimit) {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return err
}

func (w *webSocket) WriteMessages(msgs [][]byte) error {
	if w.opts.SendTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.opts.SendTimeout)); err != nil {
			return err
		}
	}
	for _, m := range msgs {
		if err := w.conn.WriteMessage(websocket.BinaryMessage, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *webSocket) Close() error {
	return w.conn.Close()
}
