package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_ServesHealth(t *testing.T) {
	td := newTestDeps("reply", nil)

	srv, err := newServer(td.Dependencies, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	td := newTestDeps("reply", nil)
	cfg := testConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.LogLevel = "disabled"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, td.Dependencies, cfg) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
}

func TestRunServe_BadAddress(t *testing.T) {
	td := newTestDeps("reply", nil)
	cfg := testConfig()
	cfg.Listen = "not-an-address"
	cfg.LogLevel = "disabled"

	err := runServe(context.Background(), td.Dependencies, cfg)
	assert.Error(t, err)
}

func TestStopServer_TimeoutIsNotAnError(t *testing.T) {
	td := newTestDeps("reply", nil)
	td.mock.Block = make(chan struct{})
	defer close(td.mock.Block)

	cfg := testConfig()
	cfg.Listen = "127.0.0.1:0"

	srv, err := newServer(td.Dependencies, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	go func() {
		resp, err := http.Post("http://"+srv.Addr()+"/chat/send", "application/json",
			strings.NewReader(`{"message":"hello"}`))
		if err == nil {
			resp.Body.Close()
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for td.mock.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, td.mock.Calls())

	assert.NoError(t, stopServer(srv, zerolog.Nop(), 50*time.Millisecond))
}
