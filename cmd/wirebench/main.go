// wirebench opens many client connections to a message server and sends
// fixed-size messages at a steady rate, then reports throughput.
// Usage: go run ./cmd/wirebench --port 7000 --clients 50 --rate 200 --duration 30s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/tickwire/internal/connection"
	"github.com/rickgao/tickwire/internal/metrics"
	"github.com/rickgao/tickwire/internal/version"
	"github.com/rickgao/tickwire/internal/wire"
)

type options struct {
	host        string
	port        int
	transport   string
	clients     int
	rate        int
	size        int
	duration    time.Duration
	metricsPort int
}

// counters are shared by every bench client.
type counters struct {
	sent          atomic.Int64
	sendErrors    atomic.Int64
	received      atomic.Int64
	bytesReceived atomic.Int64
	connects      atomic.Int64
	disconnects   atomic.Int64
}

func main() {
	var opts options
	flag.StringVar(&opts.host, "host", "127.0.0.1", "server host")
	flag.IntVar(&opts.port, "port", 7000, "server port")
	flag.StringVar(&opts.transport, "transport", string(wire.KindTCP), "tcp or websocket")
	flag.IntVar(&opts.clients, "clients", 10, "number of concurrent connections")
	flag.IntVar(&opts.rate, "rate", 100, "messages per second per client")
	flag.IntVar(&opts.size, "size", 64, "message size in bytes")
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "how long to run")
	flag.IntVar(&opts.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 = off)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if opts.clients < 1 || opts.rate < 1 || opts.rate > 1_000_000 || opts.size < 0 {
		logger.Error("invalid options: clients >= 1, 1 <= rate <= 1000000, size >= 0")
		os.Exit(1)
	}

	logger.Info("starting wirebench",
		"version", version.Version,
		"addr", fmt.Sprintf("%s:%d", opts.host, opts.port),
		"clients", opts.clients,
		"rate", opts.rate,
		"size", opts.size,
		"duration", opts.duration,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	if opts.metricsPort > 0 {
		go serveMetrics(opts.metricsPort, logger)
	}

	var c counters
	start := time.Now()
	if err := run(ctx, opts, &c, logger); err != nil {
		logger.Error("wirebench failed", "error", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	logger.Info("wirebench finished",
		"elapsed", elapsed.Round(time.Millisecond),
		"sent", c.sent.Load(),
		"send_errors", c.sendErrors.Load(),
		"received", c.received.Load(),
		"recv_msgs_per_sec", int64(float64(c.received.Load())/elapsed.Seconds()),
		"recv_bytes_per_sec", int64(float64(c.bytesReceived.Load())/elapsed.Seconds()),
		"connects", c.connects.Load(),
		"disconnects", c.disconnects.Load(),
	)
}

func run(ctx context.Context, opts options, c *counters, logger *slog.Logger) error {
	cfg := connection.DefaultConfig()
	cfg.Transport = wire.Kind(opts.transport)
	cfg.UserAgent = version.UserAgent()
	if opts.size > cfg.MaxMessageSize {
		cfg.MaxMessageSize = opts.size
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.clients; i++ {
		client, err := connection.NewClient(cfg, connection.Handlers{
			OnConnected:    func() { c.connects.Add(1) },
			OnDisconnected: func() { c.disconnects.Add(1) },
			OnData: func(data []byte) {
				c.received.Add(1)
				c.bytesReceived.Add(int64(len(data)))
			},
		}, logger.With("client", i))
		if err != nil {
			return err
		}

		g.Go(func() error {
			defer client.Close()
			runClient(ctx, client, opts, c)
			return nil
		})
	}
	return g.Wait()
}

// runClient sends on a fixed schedule and drains events on the same
// goroutine, the way a game or simulation loop would.
func runClient(ctx context.Context, client *connection.Client, opts options, c *counters) {
	payload := make([]byte, opts.size)
	for i := range payload {
		payload[i] = byte(i)
	}

	client.Connect(opts.host, opts.port)

	sendTicker := time.NewTicker(time.Second / time.Duration(opts.rate))
	defer sendTicker.Stop()
	tickTicker := time.NewTicker(time.Millisecond)
	defer tickTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			client.Disconnect()
			client.Tick(1<<30, nil)
			return
		case <-tickTicker.C:
			client.Tick(1000, nil)
			if !client.Connected() && !client.Connecting() {
				client.Connect(opts.host, opts.port)
			}
		case <-sendTicker.C:
			err := client.Send(payload)
			switch {
			case err == nil:
				c.sent.Add(1)
			case errors.Is(err, connection.ErrNotConnected):
				// Still connecting.
			default:
				c.sendErrors.Add(1)
			}
		}
	}
}

func serveMetrics(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("starting metrics server", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "error", err)
	}
}
