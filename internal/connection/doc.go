// Package connection implements the client-side connection manager.
//
// A Client owns at most one outbound connection at a time:
//   - Connect starts an attempt without blocking; the dial runs on its own goroutine
//   - Each attempt gets a fresh connState shared only by its receive and send goroutines
//   - Send enqueues and never touches the network; a full queue closes the connection
//   - Tick drains received events on the caller's goroutine and invokes callbacks
//
// Disconnect never waits for the attempt's goroutines to exit. Closing the
// socket and killing the attempt's tomb is enough to stop them, and since they
// only hold the connState built for them, a stale goroutine cannot reach a
// newer attempt.
package connection
