// Package pipe implements the inbound event queue between the wire I/O
// goroutines and the single consumer that drains it.
//
// The ReceivePipe:
//   - Keeps events in strict FIFO order (Connected, Data, Disconnected)
//   - Copies Data payloads into pooled buffers so the reader can reuse its own
//   - Lets the consumer peek an event, handle it, and only then pop it
//   - Grows its ring at 70% fill instead of dropping events
package pipe
