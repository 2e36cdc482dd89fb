package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, *chat.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := NewConfig()
	hub := NewHub()
	engine, err := chat.NewEngine(hub, cfg.EngineOptions())
	require.NoError(t, err)

	router := SetupRoutes(cfg, hub, engine)
	t.Cleanup(router.Close)
	return router, engine
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestRootBanner verifies the service banner.
func TestRootBanner(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body["endpoints"], "/api/health")
}

// TestRoomsEndpoint verifies the room catalog is served in configured order.
func TestRoomsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	assert.Equal(t, []string{"general", "random", "tech", "gaming"}, rooms)
}

// TestUsersEndpoint verifies the presence list in registration order.
func TestUsersEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.Join("c1", "alice")
	require.NoError(t, err)
	_, err = engine.Join("c2", "bob")
	require.NoError(t, err)

	w := get(t, router, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)

	var users []chat.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, chat.StatusOnline, users[0].Status)
}

// TestMessagesEndpoint covers the default room, a named room and an unknown room.
func TestMessagesEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.Join("c1", "alice")
	require.NoError(t, err)
	_, err = engine.SendMessage("c1", "hello", "")
	require.NoError(t, err)

	w := get(t, router, "/api/messages")
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "general", msgs[0].Room)

	w = get(t, router, "/api/messages?room=tech")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = get(t, router, "/api/messages?room=nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_room")
}

// TestHealthEndpoint verifies the health summary.
func TestHealthEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.Join("c1", "alice")
	require.NoError(t, err)

	w := get(t, router, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status      string `json:"status"`
		Timestamp   string `json:"timestamp"`
		Users       int    `json:"users"`
		Connections int    `json:"connections"`
		Rooms       int    `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.NotEmpty(t, body.Timestamp)
	assert.Equal(t, 1, body.Users)
	assert.Equal(t, 0, body.Connections)
	assert.Equal(t, 4, body.Rooms)
}

// TestMetricsEndpoint verifies that Prometheus exposition is served.
func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	get(t, router, "/api/rooms")

	w := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

// TestCORS verifies that allowed origins are echoed and others are not.
func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// TestWebSocketRejectsPlainGet verifies that a non-upgrade request is refused.
func TestWebSocketRejectsPlainGet(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
