// tickwire connects to a message server, sends each line read from stdin as
// one message and prints every message received.
// Usage: go run ./cmd/tickwire --config configs/tickwire.example.yaml
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/tickwire/internal/config"
	"github.com/rickgao/tickwire/internal/connection"
	"github.com/rickgao/tickwire/internal/metrics"
	"github.com/rickgao/tickwire/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML or TOML)")
	host := flag.String("host", "", "server host (overrides config)")
	port := flag.Int("port", 0, "server port (overrides config)")
	transport := flag.String("transport", "", "tcp or websocket (overrides config)")
	hexOut := flag.Bool("hex", false, "print received messages as hex")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *host, *port, *transport)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting tickwire",
		"version", version.Version,
		"commit", version.Commit,
		"addr", fmt.Sprintf("%s:%d", cfg.Client.Host, cfg.Client.Port),
		"transport", cfg.Client.Transport,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *hexOut, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("tickwire stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// loadConfig reads the config file if one is given and applies flag
// overrides on top.
func loadConfig(path, host string, port int, transport string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if host != "" {
		cfg.Client.Host = host
	}
	if port != 0 {
		cfg.Client.Port = port
	}
	if transport != "" {
		cfg.Client.Transport = transport
	}

	if err := config.Resolve(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	// Logs go to stderr; stdout carries received messages.
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

func run(ctx context.Context, cfg *config.Config, hexOut bool, in io.Reader, out io.Writer, logger *slog.Logger) error {
	var rc *reconnector

	connCfg := cfg.Client.ConnectionConfig()
	connCfg.UserAgent = version.UserAgent()

	client, err := connection.NewClient(connCfg, connection.Handlers{
		OnConnected: func() {
			logger.Info("connected")
			rc.notifyConnected()
		},
		OnData: func(data []byte) {
			if hexOut {
				fmt.Fprintln(out, hex.EncodeToString(data))
			} else {
				fmt.Fprintf(out, "%s\n", data)
			}
		},
		OnDisconnected: func() {
			logger.Info("disconnected")
			rc.notifyDisconnected()
		},
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	rc = newReconnector(client, cfg.Client.Host, cfg.Client.Port, cfg.Reconnect, logger)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics, logger)
		})
	}

	g.Go(func() error {
		return rc.Run(ctx)
	})

	g.Go(func() error {
		tickLoop(ctx, client, cfg.Tick)
		return nil
	})

	// Reading stdin cannot be interrupted, so it is not part of the group.
	go readLines(ctx, client, in, cfg.Client.MaxMessageSize, logger)

	return g.Wait()
}

func tickLoop(ctx context.Context, client *connection.Client, cfg config.TickConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	running := func() bool { return ctx.Err() == nil }
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.Tick(cfg.Limit, running)
		}
	}
}

func readLines(ctx context.Context, client *connection.Client, in io.Reader, maxMessageSize int, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize+1)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := client.Send(scanner.Bytes()); err != nil {
			logger.Warn("send failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("stdin read failed", "error", err)
		return
	}
	logger.Debug("stdin closed")
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting metrics server", "port", cfg.Port, "path", cfg.Path)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
