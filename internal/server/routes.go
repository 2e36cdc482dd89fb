// Package server wires the HTTP routes and middlewares of the chat service.
package server

import (
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// API requests allowed per client IP: apiRate per second with bursts of apiBurst.
const (
	apiRate  = 20
	apiBurst = 40
)

// Router is the HTTP handler of the service together with the resources
// that must be released on shutdown.
type Router struct {
	*gin.Engine
	limiter *ipLimiter
}

// Close stops background work owned by the router.
func (r *Router) Close() {
	r.limiter.Stop()
}

// SetupRoutes configures the gin engine with all routes and middlewares.
func SetupRoutes(cfg *Config, hub *Hub, engine *chat.Engine) *Router {
	h := NewHandler(cfg, hub, engine)
	limiter := newIPLimiter(rate.Limit(apiRate), apiBurst, 2*time.Minute)
	go limiter.gc(30 * time.Second)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(cors(h.origins))

	r.GET("/", h.Root)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.WebSocket)

	api := r.Group("/api")
	api.Use(limiter.middleware())
	api.GET("/rooms", h.Rooms)
	api.GET("/users", h.Users)
	api.GET("/messages", h.Messages)
	api.GET("/health", h.Health)

	return &Router{Engine: r, limiter: limiter}
}
