package main

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/tickwire/internal/config"
)

type fakeConnector struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeConnector) Connect(string, int) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeConnector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testReconnectConfig() config.ReconnectConfig {
	return config.ReconnectConfig{
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	}
}

func TestReconnector_ReconnectsAfterDisconnect(t *testing.T) {
	fc := &fakeConnector{}
	r := newReconnector(fc, "127.0.0.1", 7000, testReconnectConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return fc.Calls() == 1 }, time.Second, time.Millisecond)

	r.notifyDisconnected()
	require.Eventually(t, func() bool { return fc.Calls() == 2 }, time.Second, time.Millisecond)

	r.notifyConnected()
	r.notifyDisconnected()
	require.Eventually(t, func() bool { return fc.Calls() == 3 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestReconnector_Disabled(t *testing.T) {
	fc := &fakeConnector{}
	cfg := testReconnectConfig()
	cfg.Disabled = true
	r := newReconnector(fc, "127.0.0.1", 7000, cfg, slog.Default())

	r.notifyDisconnected()
	err := r.Run(context.Background())

	assert.ErrorIs(t, err, errReconnectDisabled)
	assert.Equal(t, 1, fc.Calls())
}

func TestReconnector_GivesUp(t *testing.T) {
	fc := &fakeConnector{}
	r := newReconnector(fc, "127.0.0.1", 7000, testReconnectConfig(), slog.Default())
	r.policy = &backoff.StopBackOff{}

	r.notifyDisconnected()
	err := r.Run(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, fc.Calls())
}

func TestReconnector_CancelDuringDelay(t *testing.T) {
	fc := &fakeConnector{}
	cfg := testReconnectConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour
	r := newReconnector(fc, "127.0.0.1", 7000, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.notifyDisconnected()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, fc.Calls())
}

func TestNotifyCoalesces(t *testing.T) {
	r := newReconnector(&fakeConnector{}, "h", 1, testReconnectConfig(), slog.Default())

	for i := 0; i < 5; i++ {
		r.notifyDisconnected()
		r.notifyConnected()
	}
	assert.Len(t, r.disconnected, 1)
	assert.Len(t, r.connected, 1)
}
