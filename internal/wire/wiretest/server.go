// Package wiretest provides in-process peers for exercising the wire
// transports in tests.
package wiretest

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/rickgao/tickwire/internal/wire"
)

// Server is a framed TCP peer listening on 127.0.0.1.
type Server struct {
	ln      net.Listener
	handler func(net.Conn)

	mu    sync.Mutex
	conns []net.Conn
}

// NewServer starts a framed TCP server that runs handler for each accepted
// connection. The server is shut down when the test ends.
func NewServer(t testing.TB, handler func(net.Conn)) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{ln: ln, handler: handler}
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// NewEchoServer starts a framed TCP server that echoes every message back.
func NewEchoServer(t testing.TB, maxMessageSize int) *Server {
	return NewServer(t, func(conn net.Conn) {
		for {
			msg, err := wire.ReadFrame(conn, maxMessageSize)
			if err != nil {
				return
			}
			if err := wire.WriteFrame(conn, msg); err != nil {
				return
			}
		}
	})
}

// NewSilentServer accepts connections and never reads from them, so the
// client's writes eventually stall once the socket buffers fill.
func NewSilentServer(t testing.TB) *Server {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	return NewServer(t, func(net.Conn) {
		<-done
	})
}

// Host returns the listen host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listen port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// ConnCount returns the number of connections accepted so far.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting and closes every accepted connection.
func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go func() {
			defer conn.Close()
			s.handler(conn)
		}()
	}
}

// UnreachablePort returns a local port with nothing listening on it.
func UnreachablePort(t testing.TB) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	p, _ := strconv.Atoi(port)
	return p
}

// NewWebSocketEchoServer starts an HTTP server that upgrades every request
// and echoes binary messages back.
func NewWebSocketEchoServer(t testing.TB) *httptest.Server {
	t.Helper()

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

// HostPort splits an httptest server URL into host and port.
func HostPort(server *httptest.Server) (string, int) {
	addr := strings.TrimPrefix(server.URL, "http://")
	host, port, _ := net.SplitHostPort(addr)
	p, _ := strconv.Atoi(port)
	return host, p
}
