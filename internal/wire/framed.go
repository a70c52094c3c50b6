package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// framed is the length-prefixed TCP transport.
type framed struct {
	conn net.Conn
	r    *bufio.Reader
	opts Options

	header [HeaderSize]byte
	// payload is reused across batches; only the send goroutine writes.
	payload []byte
}

// NewFramed wraps conn in the length-prefixed framing.
func NewFramed(conn net.Conn, opts Options) Transport {
	return &framed{
		conn: conn,
		r:    bufio.NewReaderSize(conn, 64*1024),
		opts: opts,
	}
}

func (f *framed) ReadMessage(buf []byte) (int, error) {
	if f.opts.ReceiveTimeout > 0 {
		if err := f.conn.SetReadDeadline(time.Now().Add(f.opts.ReceiveTimeout)); err != nil {
			return 0, err
		}
	}

	if _, err := io.ReadFull(f.r, f.header[:]); err != nil {
		return 0, err
	}

	size := int(binary.BigEndian.Uint32(f.header[:]))
	if size > f.opts.MaxMessageSize || size > len(buf) {
		return 0, fmt.Errorf("%w: size %d exceeds max %d", ErrInvalidHeader, size, f.opts.MaxMessageSize)
	}

	if _, err := io.ReadFull(f.r, buf[:size]); err != nil {
		return 0, err
	}
	return size, nil
}

// WriteMessages packs the whole batch into one buffer and writes it with a
// single call.
func (f *framed) WriteMessages(msgs [][]byte) error {
	total := 0
	for _, m := range msgs {
		total += HeaderSize + len(m)
	}
	if cap(f.payload) < total {
		f.payload = make([]byte, total)
	}
	out := f.payload[:total]

	pos := 0
	for _, m := range msgs {
		binary.BigEndian.PutUint32(out[pos:], uint32(len(m)))
		pos += HeaderSize
		pos += copy(out[pos:], m)
	}

	if f.opts.SendTimeout > 0 {
		if err := f.conn.SetWriteDeadline(time.Now().Add(f.opts.SendTimeout)); err != nil {
			return err
		}
	}
	_, err := f.conn.Write(out)
	return err
}

func (f *framed) Close() error {
	return f.conn.Close()
}

// WriteFrame writes a single length-prefixed message to w.
func WriteFrame(w io.Writer, msg []byte) error {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(msg)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

// ReadFrame reads a single length-prefixed message of at most maxSize bytes.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := int(binary.BigEndian.Uint32(header[:]))
	if size > maxSize {
		return nil, fmt.Errorf("%w: size %d exceeds max %d", ErrInvalidHeader, size, maxSize)
	}
	msg := make([]byte, size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
