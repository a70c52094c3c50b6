package pipe

import "errors"

// Errors
var (
	ErrPipeClosed      = errors.New("pipe closed")
	ErrMessageTooLarge = errors.New("message exceeds pooled buffer size")
)

// EventType tags an inbound event.
type EventType uint8

const (
	Connected EventType = iota + 1
	Data
	Disconnected
)

func (t EventType) String() string {
	switch t {
	case Connected:
		return "connected"
	case Data:
		return "data"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a single inbound event as seen by the consumer.
//
// Data aliases a pooled buffer and is only valid until the event is popped.
type Event struct {
	Type EventType
	Data []byte
}

// Stats contains pipe statistics.
type Stats struct {
	Count         int
	Capacity      int
	TotalEnqueued int64
	TotalDequeued int64
	ResizeCount   int
	BuffersInUse  int
}
