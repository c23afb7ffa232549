package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testServeConfig = Config{
	ListenAddr:        "127.0.0.1:0",
	MetricsListenAddr: "127.0.0.1:0",
	PprofListenAddr:   "127.0.0.1:0",
}

func serveAsync(ctx context.Context, background ...Background) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, testLogger, testServeConfig, Dependencies{}, background...)
	}()
	return done
}

func waitForServe(t *testing.T, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		require.FailNow(t, "Serve did not return")
	}
	return nil
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	stopped := make(chan struct{})
	task := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return nil
	}

	done := serveAsync(ctx, task)
	<-started
	cancel()

	assert.NoError(t, waitForServe(t, done))
	select {
	case <-stopped:
	default:
		assert.Fail(t, "background task did not observe cancellation")
	}
}

func TestServeReturnsBackgroundError(t *testing.T) {
	var sawCancel bool
	watcher := func(ctx context.Context) error {
		<-ctx.Done()
		sawCancel = true
		return nil
	}
	failing := func(ctx context.Context) error {
		return errors.New("budget watcher failed")
	}

	done := serveAsync(context.Background(), watcher, failing)

	assert.EqualError(t, waitForServe(t, done), "budget watcher failed")
	assert.True(t, sawCancel, "other tasks are stopped when one fails")
}

func TestServeReturnsListenError(t *testing.T) {
	cfg := testServeConfig
	cfg.ListenAddr = "127.0.0.1:-1"
	err := Serve(context.Background(), testLogger, cfg, Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP API server error")
}
