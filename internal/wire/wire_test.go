package wire

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/tickwire/internal/pipe"
)

var testOpts = Options{
	MaxMessageSize:    64,
	ReceiveQueueLimit: 100,
	SendTimeout:       time.Second,
}

// fakeTransport replays scripted reads and records written batches.
type fakeTransport struct {
	mu      sync.Mutex
	reads   [][]byte
	readErr error
	batches [][][]byte
	written chan struct{}
}

func newFakeTransport(reads ...string) *fakeTransport {
	f := &fakeTransport{readErr: io.EOF, written: make(chan struct{}, 100)}
	for _, r := range reads {
		f.reads = append(f.reads, []byte(r))
	}
	return f
}

func (f *fakeTransport) ReadMessage(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return 0, f.readErr
	}
	n := copy(buf, f.reads[0])
	f.reads = f.reads[1:]
	return n, nil
}

func (f *fakeTransport) WriteMessages(msgs [][]byte) error {
	f.mu.Lock()
	batch := make([][]byte, len(msgs))
	for i, m := range msgs {
		batch[i] = append([]byte(nil), m...)
	}
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
	f.written <- struct{}{}
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) Batches() [][][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func drainEvents(t *testing.T, p *pipe.ReceivePipe) []string {
	t.Helper()
	var out []string
	for {
		ev, ok := p.TryPeek()
		if !ok {
			return out
		}
		if ev.Type == pipe.Data {
			out = append(out, "data:"+string(ev.Data))
		} else {
			out = append(out, ev.Type.String())
		}
		p.TryPop()
	}
}

func TestFramed_WriteMessagesBatch(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := NewFramed(client, testOpts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- tr.WriteMessages([][]byte{[]byte("a"), []byte("bc"), {}})
	}()

	for _, want := range []string{"a", "bc", ""} {
		msg, err := ReadFrame(server, testOpts.MaxMessageSize)
		require.NoError(t, err)
		assert.Equal(t, want, string(msg))
	}
	require.NoError(t, <-errCh)
}

func TestFramed_ReadMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := NewFramed(client, testOpts)

	go func() {
		WriteFrame(server, []byte("hello"))
		WriteFrame(server, []byte("world"))
	}()

	buf := make([]byte, testOpts.MaxMessageSize)
	for _, want := range []string{"hello", "world"} {
		n, err := tr.ReadMessage(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]))
	}
}

func TestFramed_RejectsOversizeHeader(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := NewFramed(client, testOpts)

	go WriteFrame(server, make([]byte, testOpts.MaxMessageSize+1))

	_, err := tr.ReadMessage(make([]byte, testOpts.MaxMessageSize))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestFramed_ReceiveTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	opts := testOpts
	opts.ReceiveTimeout = 20 * time.Millisecond
	tr := NewFramed(client, opts)

	_, err := tr.ReadMessage(make([]byte, opts.MaxMessageSize))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr), "expected net.Error, got %v", err)
	assert.True(t, netErr.Timeout())
}

func TestReadFrame_TooLarge(t *testing.T) {
	r, w := net.Pipe()
	defer r.Close()
	defer w.Close()

	go WriteFrame(w, []byte("0123456789"))

	_, err := ReadFrame(r, 4)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestSendLoop_DrainsWholeBatch(t *testing.T) {
	tr := newFakeTransport()
	outbound := make(chan []byte, 10)
	outbound <- []byte("1")
	outbound <- []byte("2")
	outbound <- []byte("3")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- SendLoop(ctx, tr, outbound, 100) }()

	select {
	case <-tr.written:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	batches := tr.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2"), []byte("3")}, batches[0])
}

func TestSendLoop_MaxBatch(t *testing.T) {
	tr := newFakeTransport()
	outbound := make(chan []byte, 10)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		outbound <- []byte(m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SendLoop(ctx, tr, outbound, 2)

	for i := 0; i < 3; i++ {
		select {
		case <-tr.written:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for batch %d", i)
		}
	}

	var sizes []int
	var flat []string
	for _, b := range tr.Batches() {
		sizes = append(sizes, len(b))
		for _, m := range b {
			flat = append(flat, string(m))
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, flat)
}

func TestSendLoop_CancelWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- SendLoop(ctx, newFakeTransport(), make(chan []byte), 10) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("SendLoop did not return after cancel")
	}
}

func TestReceiveLoop_EventOrder(t *testing.T) {
	p, err := pipe.NewReceivePipe(testOpts.MaxMessageSize, 100)
	require.NoError(t, err)
	defer p.Close()

	tr := newFakeTransport("one", "two")
	err = ReceiveLoop(context.Background(), tr, p, testOpts)
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []string{"connected", "data:one", "data:two", "disconnected"}, drainEvents(t, p))
}

func TestReceiveLoop_QueueLimit(t *testing.T) {
	p, err := pipe.NewReceivePipe(testOpts.MaxMessageSize, 100)
	require.NoError(t, err)
	defer p.Close()

	opts := testOpts
	opts.ReceiveQueueLimit = 2

	tr := newFakeTransport("1", "2", "3", "4")
	err = ReceiveLoop(context.Background(), tr, p, opts)
	assert.ErrorIs(t, err, ErrReceiveQueueFull)

	// Connected + one Data reach the limit; Disconnected still closes the sequence.
	assert.Equal(t, []string{"connected", "data:1", "disconnected"}, drainEvents(t, p))
}

func TestWebSocket_Echo(t *testing.T) {
	server := newWSEchoServer(t)
	addr := strings.TrimPrefix(server.URL, "http://")

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := DialWebSocket(ctx, conn, "ws://"+addr+"/", testOpts, nil)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.WriteMessages([][]byte{[]byte("hello"), []byte("again")}))

	buf := make([]byte, testOpts.MaxMessageSize)
	for _, want := range []string{"hello", "again"} {
		n, err := tr.ReadMessage(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]))
	}
}

func TestWebSocket_ExactMaxSize(t *testing.T) {
	server := newWSEchoServer(t)
	addr := strings.TrimPrefix(server.URL, "http://")

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	tr, err := DialWebSocket(context.Background(), conn, "ws://"+addr+"/", testOpts, nil)
	require.NoError(t, err)
	defer tr.Close()

	payload := []byte(strings.Repeat("x", testOpts.MaxMessageSize))
	require.NoError(t, tr.WriteMessages([][]byte{payload}))

	buf := make([]byte, testOpts.MaxMessageSize)
	n, err := tr.ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
}

func TestWebSocket_FragmentedOversizeRejected(t *testing.T) {
	server := newWSFragmentServer(t, []byte(strings.Repeat("a", 16)), []byte(strings.Repeat("a", 16)))
	ws := dialWS(t, server)

	tr := NewWebSocket(ws, Options{MaxMessageSize: 16})
	defer tr.Close()

	n, err := tr.ReadMessage(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.Zero(t, n)
}

func TestWebSocket_FragmentedExactFit(t *testing.T) {
	server := newWSFragmentServer(t, []byte(strings.Repeat("a", 16)), []byte(strings.Repeat("b", 16)))
	ws := dialWS(t, server)

	tr := NewWebSocket(ws, Options{MaxMessageSize: 32})
	defer tr.Close()

	buf := make([]byte, 32)
	n, err := tr.ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 16)+strings.Repeat("b", 16), string(buf[:n]))
}

func TestDialWebSocket_HandshakeFailureClosesConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept and immediately hang up: the HTTP upgrade cannot complete.
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	_, err = DialWebSocket(context.Background(), conn, "ws://"+ln.Addr().String()+"/", testOpts, nil)
	require.Error(t, err)

	_, err = conn.Write([]byte("x"))
	assert.ErrorIs(t, err, net.ErrClosed)
}

// newWSEchoServer creates a test WebSocket server that echoes every message.
func newWSEchoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(typ, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// newWSFragmentServer creates a test WebSocket server that sends one binary
// message written in chunks. The small write buffer makes every chunk its
// own frame.
func newWSFragmentServer(t *testing.T, chunks ...[]byte) *httptest.Server {
	upgrader := websocket.Upgrader{
		WriteBufferSize: 16,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		mw, err := conn.NextWriter(websocket.BinaryMessage)
		if err != nil {
			return
		}
		for _, c := range chunks {
			if _, err := mw.Write(c); err != nil {
				return
			}
		}
		if err := mw.Close(); err != nil {
			return
		}

		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(server.URL, "http://") + "/"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}
