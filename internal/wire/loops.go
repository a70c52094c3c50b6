package wire

import (
	"context"

	"github.com/rickgao/tickwire/internal/metrics"
	"github.com/rickgao/tickwire/internal/pipe"
)

// SendLoop waits on outbound and writes whatever has queued up since the last
// wake as one batch, in enqueue order. It returns when ctx is cancelled or a
// write fails.
func SendLoop(ctx context.Context, t Transport, outbound <-chan []byte, maxBatch int) error {
	if maxBatch < 1 {
		maxBatch = 1
	}
	batch := make([][]byte, 0, 16)

	for {
		batch = batch[:0]

		// Sleep until there is something to send
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-outbound:
			batch = append(batch, msg)
		}

		// Grab everything else that is already queued
	drain:
		for len(batch) < maxBatch {
			select {
			case msg := <-outbound:
				batch = append(batch, msg)
			default:
				break drain
			}
		}

		if err := t.WriteMessages(batch); err != nil {
			return err
		}

		bytes := 0
		for _, m := range batch {
			bytes += len(m)
		}
		metrics.MessagesSent.Add(float64(len(batch)))
		metrics.BytesSent.Add(float64(bytes))
		metrics.SendBatchSize.Observe(float64(len(batch)))

		clear(batch)
	}
}

// ReceiveLoop reads messages until the connection ends and pushes them to
// inbound. A Connected event is always pushed first and a Disconnected
// event always last, so the consumer sees a well-formed sequence for this
// connection whatever the exit reason.
func ReceiveLoop(ctx context.Context, t Transport, inbound *pipe.ReceivePipe, opts Options) (err error) {
	if err := inbound.Enqueue(ctx, pipe.Connected, nil); err != nil {
		return err
	}
	defer func() {
		// ctx is usually cancelled by now; Disconnected needs no buffer.
		if qerr := inbound.Enqueue(context.Background(), pipe.Disconnected, nil); qerr != nil && err == nil {
			err = qerr
		}
	}()

	buf := make([]byte, opts.MaxMessageSize)
	for {
		n, err := t.ReadMessage(buf)
		if err != nil {
			return err
		}

		if opts.ReceiveQueueLimit > 0 && inbound.Count() >= opts.ReceiveQueueLimit {
			metrics.ReceiveQueueOverflows.Inc()
			return ErrReceiveQueueFull
		}

		if err := inbound.Enqueue(ctx, pipe.Data, buf[:n]); err != nil {
			return err
		}

		metrics.MessagesReceived.Inc()
		metrics.BytesReceived.Add(float64(n))
	}
}
