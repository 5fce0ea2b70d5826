package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
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

type testEnv struct {
	server *Server
	http   *httptest.Server
	client *http.Client
	mock   *api.MockCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := &api.MockCompleter{Reply: "Hello!\n\nHow can I help?"}
	srv := NewServer(Options{
		Client:       mock,
		SystemPrompt: "You are WayChat.",
		Model:        "test-model",
		Logger:       zerolog.Nop(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: srv,
		http:   ts,
		client: &http.Client{Jar: jar},
		mock:   mock,
	}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) (*http.Response, panel.View) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := e.client.Post(e.http.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var view panel.View
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	}
	return resp, view
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	resp, err := e.client.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestPage_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `id="waychat-toggle"`)
	assert.Contains(t, body, `id="waychat-panel"`)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie should be set")
	assert.Equal(t, 1, env.server.SessionCount())

	// Same client reuses the session
	env.get(t, "/")
	assert.Equal(t, 1, env.server.SessionCount())
}

func TestPage_UnknownPathIs404(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleAndClick(t *testing.T) {
	env := newTestEnv(t)

	_, view := env.post(t, "/chat/toggle", nil)
	assert.True(t, view.Open)

	_, view = env.post(t, "/chat/click", clickRequest{Target: panel.TargetPanel})
	assert.True(t, view.Open, "click inside the panel keeps it open")

	_, view = env.post(t, "/chat/click", clickRequest{Target: panel.TargetToggle})
	assert.True(t, view.Open, "click on the toggle is not an outside click")

	_, view = env.post(t, "/chat/click", clickRequest{Target: panel.TargetOutside})
	assert.False(t, view.Open)

	_, view = env.post(t, "/chat/click", clickRequest{Target: panel.TargetOutside})
	assert.False(t, view.Open, "outside click on a closed panel changes nothing")
}

func TestClick_RejectsUnknownTarget(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/chat/click", map[string]string{"target": "window"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := env.client.Post(env.http.URL+"/chat/click", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/chat/send")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSend_Success(t *testing.T) {
	env := newTestEnv(t)

	_, view := env.post(t, "/chat/send", sendRequest{Message: "  <b>hi</b>  "})
	require.Len(t, view.Entries, 2)

	user := view.Entries[0]
	assert.Equal(t, panel.EntryUser, user.Kind)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", user.HTML)

	reply := view.Entries[1]
	assert.Equal(t, panel.EntryAssistant, reply.Kind)
	assert.Equal(t, "<p>Hello!</p><p>How can I help?</p>", reply.HTML)
	assert.False(t, view.Pending)
	assert.True(t, view.ScrollToEnd)

	transcript := env.mock.LastTranscript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "You are WayChat.", transcript[0].Content)
	assert.Equal(t, "<b>hi</b>", transcript[1].Content)
}

func TestSend_EmptyMessageIsNoop(t *testing.T) {
	env := newTestEnv(t)

	_, view := env.post(t, "/chat/send", sendRequest{Message: "   "})
	assert.Empty(t, view.Entries)
	assert.Equal(t, 0, env.mock.Calls())
}

func TestSend_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Set("", errors.New("boom"))

	_, view := env.post(t, "/chat/send", sendRequest{Message: "hello"})
	require.Len(t, view.Entries, 2)
	assert.Equal(t, panel.EntryError, view.Entries[1].Kind)
	assert.Equal(t, "Error: could not get response", view.Entries[1].Text)
}

func TestSessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/chat/toggle", nil)

	other := &http.Client{}
	resp, err := other.Get(env.http.URL + "/chat/view")
	require.NoError(t, err)
	defer resp.Body.Close()

	var view panel.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.False(t, view.Open)
	assert.Equal(t, 2, env.server.SessionCount())
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/chat/send", sendRequest{Message: "hello"})

	resp, body := env.get(t, "/chat/export?format=markdown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".md")
	assert.Contains(t, body, "**Model:** test-model")
	assert.Contains(t, body, "## User\n\nhello")
	assert.Contains(t, body, "How can I help?")

	resp, body = env.get(t, "/chat/export?format=json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, json.Valid([]byte(body)))

	resp, _ = env.get(t, "/chat/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.server.now = func() time.Time { return now }

	env.get(t, "/chat/view")
	require.Equal(t, 1, env.server.SessionCount())

	// A new session created after the TTL sweeps the idle one
	now = now.Add(defaultSessionTTL + time.Minute)
	resp, err := http.Get(env.http.URL + "/chat/view")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 1, env.server.SessionCount())
}

func TestWebsocket_PushesViews(t *testing.T) {
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
	assert.False(t, initial.Open)

	env.post(t, "/chat/toggle", nil)

	var pushed panel.View
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.True(t, pushed.Open)
	assert.Greater(t, pushed.Revision, initial.Revision)
}

func TestLatestView_KeepsNewest(t *testing.T) {
	l := newLatestView()
	l.Render(panel.View{Revision: 1})
	l.Render(panel.View{Revision: 2})
	l.Render(panel.View{Revision: 3})

	v := <-l.ch
	assert.Equal(t, uint64(3), v.Revision)
	select {
	case <-l.ch:
		t.Fatal("expected a single buffered view")
	default:
	}
}
