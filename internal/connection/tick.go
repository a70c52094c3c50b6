package connection

import "github.com/rickgao/tickwire/internal/pipe"

// Tick delivers up to limit queued events to the handlers on the calling
// goroutine and returns how many are still queued. shouldContinue, if not
// nil, is checked before each event and stops the drain when it returns
// false.
//
// An event is removed only after its handler returns, so the data passed to
// OnData must not be retained.
func (c *Client) Tick(limit int, shouldContinue func() bool) int {
	for i := 0; i < limit; i++ {
		if shouldContinue != nil && !shouldContinue() {
			break
		}

		ev, ok := c.inbound.TryPeek()
		if !ok {
			break
		}
		c.dispatch(ev)
		c.inbound.TryPop()
	}
	return c.inbound.Count()
}

func (c *Client) dispatch(ev pipe.Event) {
	switch ev.Type {
	case pipe.Connected:
		if c.handlers.OnConnected != nil {
			c.handlers.OnConnected()
		}
	case pipe.Data:
		if c.handlers.OnData != nil {
			c.handlers.OnData(ev.Data)
		}
	case pipe.Disconnected:
		if c.handlers.OnDisconnected != nil {
			c.handlers.OnDisconnected()
		}
	default:
		c.logger.Warn("unknown event type", "type", ev.Type)
	}
}
