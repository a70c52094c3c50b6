package pipe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jackc/puddle/v2"
)

// entry is one queued event. Data events hold a pooled buffer until popped.
type entry struct {
	typ EventType
	res *puddle.Resource[[]byte]
	n   int
}

// ReceivePipe is a thread-safe FIFO of inbound events. Any number of
// producers may Enqueue; exactly one consumer may TryPeek/TryPop.
type ReceivePipe struct {
	mu     sync.Mutex
	ring   *ring[entry]
	pool   *puddle.Pool[[]byte]
	closed bool

	maxMessageSize int

	// Stats
	totalEnqueued int64
	totalDequeued int64
}

// NewReceivePipe creates a pipe whose Data payloads are copied into pooled
// buffers of maxMessageSize bytes. At most maxBuffers payloads are held at
// once; further Data enqueues wait for a buffer to be popped.
func NewReceivePipe(maxMessageSize, maxBuffers int) (*ReceivePipe, error) {
	if maxMessageSize < 1 {
		return nil, fmt.Errorf("max message size must be >= 1, got %d", maxMessageSize)
	}
	if maxBuffers < 1 {
		return nil, fmt.Errorf("max buffers must be >= 1, got %d", maxBuffers)
	}
	if maxBuffers > math.MaxInt32 {
		maxBuffers = math.MaxInt32
	}

	pool, err := puddle.NewPool(&puddle.Config[[]byte]{
		Constructor: func(context.Context) ([]byte, error) {
			return make([]byte, maxMessageSize), nil
		},
		Destructor: func([]byte) {},
		MaxSize:    int32(maxBuffers),
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer pool: %w", err)
	}

	return &ReceivePipe{
		ring:           newRing[entry](64),
		pool:           pool,
		maxMessageSize: maxMessageSize,
	}, nil
}

// Enqueue appends an event. For Data events the payload is copied into a
// pooled buffer, so the caller may reuse data as soon as Enqueue returns.
// ctx bounds the wait for a free buffer.
func (p *ReceivePipe) Enqueue(ctx context.Context, typ EventType, data []byte) error {
	e := entry{typ: typ}

	if typ == Data {
		if len(data) > p.maxMessageSize {
			return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), p.maxMessageSize)
		}
		res, err := p.pool.Acquire(ctx)
		if err != nil {
			if errors.Is(err, puddle.ErrClosedPool) {
				return ErrPipeClosed
			}
			return fmt.Errorf("acquire buffer: %w", err)
		}
		e.res = res
		e.n = copy(res.Value(), data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		if e.res != nil {
			e.res.Release()
		}
		return ErrPipeClosed
	}

	p.ring.push(e)
	p.totalEnqueued++
	return nil
}

// TryPeek returns the oldest event without removing it. The event's Data
// stays valid until the matching TryPop.
func (p *ReceivePipe) TryPeek() (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.ring.peek()
	if !ok {
		return Event{}, false
	}

	ev := Event{Type: e.typ}
	if e.res != nil {
		ev.Data = e.res.Value()[:e.n]
	}
	return ev, true
}

// TryPop removes the oldest event and returns its buffer to the pool.
// Returns false if the pipe is empty.
func (p *ReceivePipe) TryPop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.ring.pop()
	if !ok {
		return false
	}
	if e.res != nil {
		e.res.Release()
	}
	p.totalDequeued++
	return true
}

// Count returns the number of queued events.
func (p *ReceivePipe) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.count
}

// Clear drops every queued event and releases their buffers.
func (p *ReceivePipe) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
}

// Close drops queued events and closes the buffer pool. Enqueue fails with
// ErrPipeClosed afterwards.
func (p *ReceivePipe) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.drainLocked()
	p.mu.Unlock()

	// Blocks until in-flight Enqueue calls hand their buffers back.
	p.pool.Close()
}

// Stats returns pipe statistics.
func (p *ReceivePipe) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Count:         p.ring.count,
		Capacity:      p.ring.capacity,
		TotalEnqueued: p.totalEnqueued,
		TotalDequeued: p.totalDequeued,
		ResizeCount:   p.ring.resizeCount,
		BuffersInUse:  int(p.pool.Stat().AcquiredResources()),
	}
}

func (p *ReceivePipe) drainLocked() {
	for {
		e, ok := p.ring.pop()
		if !ok {
			return
		}
		if e.res != nil {
			e.res.Release()
		}
		p.totalDequeued++
	}
}
