// Package wire implements the blocking I/O loops that move whole messages
// over an open connection.
//
// Two framings are supported behind the Transport interface:
//   - Framed: 4-byte big-endian length prefix over a raw TCP stream
//   - WebSocket: one binary WebSocket message per payload
//
// SendLoop and ReceiveLoop run on their own goroutines and only ever see the
// Transport, the queues and the context they were handed.
package wire
