package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

type fakeSource struct {
	mu sync.Mutex
	fn func(events.DomainEvent)
}

func (s *fakeSource) Subscribe(fn func(events.DomainEvent)) func() {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.fn = nil
		s.mu.Unlock()
	}
}

func (s *fakeSource) emit(e events.DomainEvent) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func startHub(t *testing.T, cfg ServerConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, cfg, nil).HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestLiveFeed_RelaysEvents(t *testing.T) {
	hub, srv := startHub(t, DefaultServerConfig())
	conn := dial(t, srv)

	assert.Equal(t, TypeConnected, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	src := &fakeSource{}
	state := filters.NewState(nil)
	b := NewBroadcaster(hub, src, state, nil)
	defer b.Close()

	src.emit(events.NewNodeAdded("doc", 1, "alice"))
	msg := readMessage(t, conn)
	assert.Equal(t, events.TypeNodeAdded, msg.Type)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "alice", payload["node_key"])

	state.SetSearch("ali")
	msg = readMessage(t, conn)
	assert.Equal(t, TypeFilterCriteria, msg.Type)
	var view filters.View
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	assert.Equal(t, "ali", view.Search)

	state.SetAvailableFacets(nil)
	assert.Equal(t, TypeFacetsUpdated, readMessage(t, conn).Type)
}

func TestLiveFeed_Disconnect(t *testing.T) {
	hub, srv := startHub(t, DefaultServerConfig())
	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ConnectionLimit(t *testing.T) {
	hub, srv := startHub(t, ServerConfig{MaxConnections: 1})
	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(r))
	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(r))

	assert.True(t, originChecker([]string{"*"})(r))
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, DefaultServerConfig(), nil).HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Error(t, hub.Broadcast("x", 1))
}
