package web

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/waychat/internal/api"
	"github.com/diogo/waychat/internal/panel"
)

func TestStop_ClosesWebsockets(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(mustURL(t, env.http.URL)) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var initial panel.View
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, env.server.Stop(context.Background()))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// A second Stop is harmless
	assert.NoError(t, env.server.Stop(context.Background()))
}

func TestStop_CutsOffSlowSend(t *testing.T) {
	mock := &api.MockCompleter{Reply: "late", Block: make(chan struct{})}
	defer close(mock.Block)

	srv := NewServer(Options{
		Addr:         "127.0.0.1:0",
		Client:       mock,
		SystemPrompt: "You are WayChat.",
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, srv.Start())
	require.NotEmpty(t, srv.Addr())

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		resp, err := http.Post("http://"+srv.Addr()+"/chat/send", "application/json",
			strings.NewReader(`{"message":"hello"}`))
		if err == nil {
			resp.Body.Close()
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for mock.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, mock.Calls())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := srv.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight send was not cut off")
	}
}
