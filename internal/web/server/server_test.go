package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_RequiresHandler(t *testing.T) {
	_, err := New(&Config{Address: ":0"})
	assert.Error(t, err)
}

func TestServer_ServesRequests(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)

	go srv.Start()

	// Wait for the listener to come up.
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestGracefulShutdown_RunsHooks(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)
	go srv.Start()

	require.Eventually(t, func() bool {
		_, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: 5 * time.Second})

	var hookCalls []string
	gs.RegisterHook(func(ctx context.Context) error {
		hookCalls = append(hookCalls, "store")
		return nil
	})
	gs.RegisterHook(func(ctx context.Context) error {
		hookCalls = append(hookCalls, "logger")
		return fmt.Errorf("flush failed")
	})

	require.NoError(t, gs.Shutdown())
	assert.Equal(t, []string{"store", "logger"}, hookCalls, "all hooks run even when one fails")
}

func TestGracefulShutdown_IsIdempotent(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	require.NoError(t, err)
	go srv.Start()

	gs := NewGracefulShutdown(srv, nil)
	calls := 0
	gs.RegisterHook(func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, gs.Shutdown())
	require.NoError(t, gs.Shutdown())
	assert.Equal(t, 1, calls)
}
