package connection

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"github.com/rickgao/tickwire/internal/pipe"
)

// connState is everything one connection attempt owns. The receive and send
// goroutines of the attempt only ever see this struct, never the Client.
type connState struct {
	id  string
	tmb *tomb.Tomb
	ctx context.Context // cancelled when tmb starts dying

	// done is tmb.Dead() once the receive goroutine is started. prevDone is
	// the done channel of the attempt this one replaced, if any.
	done     <-chan struct{}
	prevDone <-chan struct{}

	connecting   atomic.Bool
	sendOverflow atomic.Bool

	mu       sync.Mutex
	conn     net.Conn
	disposed bool

	// outbound is both the send queue and the send goroutine's wake signal.
	outbound chan []byte
	inbound  *pipe.ReceivePipe
}

func newConnState(sendQueueLimit int, inbound *pipe.ReceivePipe) *connState {
	tmb, ctx := tomb.WithContext(context.Background())
	return &connState{
		id:       uuid.NewString(),
		tmb:      tmb,
		ctx:      ctx,
		outbound: make(chan []byte, sendQueueLimit),
		inbound:  inbound,
	}
}

// connected reports whether a socket is attached.
func (s *connState) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *connState) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// attach stores a freshly dialed socket. It fails once the state has been
// disposed; the caller then owns conn and must close it.
func (s *connState) attach(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	s.conn = conn
	return true
}

// closeConn closes and detaches the socket. Blocked reads and writes on it
// return immediately.
func (s *connState) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// dispose tears the attempt down without waiting for its goroutines.
func (s *connState) dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()

	s.closeConn()
	s.tmb.Kill(nil)
	s.connecting.Store(false)
	s.clearOutbound()
}

// cleanup runs when the receive goroutine exits, however it exits.
func (s *connState) cleanup() {
	s.tmb.Kill(nil)
	s.connecting.Store(false)
	s.closeConn()
}

func (s *connState) clearOutbound() {
	for {
		select {
		case <-s.outbound:
		default:
			return
		}
	}
}
