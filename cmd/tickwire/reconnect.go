package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rickgao/tickwire/internal/config"
)

var errReconnectDisabled = errors.New("connection lost and reconnect is disabled")

type connector interface {
	Connect(host string, port int)
}

// reconnector issues Connect calls: once at start, then after every
// disconnect with exponential backoff. The backoff resets on each
// successful connection.
type reconnector struct {
	client   connector
	host     string
	port     int
	disabled bool
	policy   backoff.BackOff
	logger   *slog.Logger

	connected    chan struct{}
	disconnected chan struct{}
}

func newReconnector(client connector, host string, port int, cfg config.ReconnectConfig, logger *slog.Logger) *reconnector {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.MaxInterval = cfg.MaxDelay
	b.MaxElapsedTime = cfg.MaxElapsed
	b.Reset()

	return &reconnector{
		client:       client,
		host:         host,
		port:         port,
		disabled:     cfg.Disabled,
		policy:       b,
		logger:       logger,
		connected:    make(chan struct{}, 1),
		disconnected: make(chan struct{}, 1),
	}
}

// notifyConnected and notifyDisconnected are called from the tick loop and
// never block. Repeated notifications coalesce.
func (r *reconnector) notifyConnected() {
	select {
	case r.connected <- struct{}{}:
	default:
	}
}

func (r *reconnector) notifyDisconnected() {
	select {
	case r.disconnected <- struct{}{}:
	default:
	}
}

// Run connects and keeps reconnecting until ctx is cancelled or the policy
// gives up.
func (r *reconnector) Run(ctx context.Context) error {
	r.client.Connect(r.host, r.port)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.connected:
			r.policy.Reset()
		case <-r.disconnected:
			if r.disabled {
				return errReconnectDisabled
			}

			delay := r.policy.NextBackOff()
			if delay == backoff.Stop {
				return fmt.Errorf("giving up reconnecting to %s:%d", r.host, r.port)
			}

			r.logger.Info("reconnecting", "delay", delay.Round(time.Millisecond))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}

			r.client.Connect(r.host, r.port)
		}
	}
}
