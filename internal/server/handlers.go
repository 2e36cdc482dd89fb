// Package server exposes HTTP handlers, including WebSocket upgrades, the
// read-only chat query endpoints, and health checks.
package server

import (
	"errors"
	"net/http"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Version is reported by the root banner.
const Version = "1.0.0"

// Handler serves the HTTP routes on top of a hub and a chat engine.
type Handler struct {
	cfg      *Config
	hub      *Hub
	engine   *chat.Engine
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// NewHandler builds the handlers and the origin-checking upgrader.
func NewHandler(cfg *Config, hub *Hub, engine *chat.Engine) *Handler {
	origins := newOriginPolicy(cfg.AllowedOrigins)
	return &Handler{
		cfg:     cfg,
		hub:     hub,
		engine:  engine,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// WebSocket upgrades the request (the upgrader answers 403 to disallowed
// origins), opens a chat session for the connection
// and registers the client with the hub, which launches its pumps.
func (h *Handler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("addr", c.Request.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn, h.hub, h.engine, h.cfg, c.Request.RemoteAddr)
	if !h.hub.Register(client) {
		log.Warn().Str("conn", string(client.id)).Msg("hub stopped; refusing websocket connection")
		client.session.Close()
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn().Err(err).Str("conn", string(client.id)).Msg("error closing refused connection")
		}
	}
}

// Root returns the service banner.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Chat server is running",
		"version": Version,
		"endpoints": gin.H{
			"/api/messages": "GET - Get messages for a room",
			"/api/users":    "GET - Get online users",
			"/api/rooms":    "GET - Get available rooms",
			"/api/health":   "GET - Health check",
			"/ws":           "GET - WebSocket endpoint",
		},
	})
}

// Rooms returns the room catalog.
func (h *Handler) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Rooms())
}

// Users returns the presence list in registration order.
func (h *Handler) Users(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Presence())
}

// Messages returns the stored history of ?room, or of the default room.
func (h *Handler) Messages(c *gin.Context) {
	room := c.Query("room")
	if room == "" {
		room = h.engine.DefaultRoom()
	}
	msgs, err := h.engine.History(room)
	if err != nil {
		if errors.Is(err, chat.ErrUnknownRoom) {
			c.JSON(http.StatusNotFound, gin.H{"error": chat.ErrorCode(err), "room": room})
			return
		}
		log.Error().Err(err).Str("room", room).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Health reports engine and transport counters.
func (h *Handler) Health(c *gin.Context) {
	health := h.engine.Health()
	c.JSON(http.StatusOK, gin.H{
		"status":      health.Status,
		"timestamp":   health.Timestamp,
		"users":       health.Users,
		"connections": h.hub.ClientCount(),
		"rooms":       health.Rooms,
	})
}
