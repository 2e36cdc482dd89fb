// Package metrics holds the Prometheus collectors of the chat server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of open websocket connections",
	})
	ActiveUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_users",
		Help: "Current number of users that completed a join",
	})
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total number of chat messages stored and fanned out",
	}, []string{"room"})
	RequestRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_request_rejections_total",
		Help: "Join and room change requests rejected, by reply event and reason",
	}, []string{"event", "reason"})
	DeliveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_delivery_failures_total",
		Help: "Frames that could not be handed to a connection, by reason",
	}, []string{"reason"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		ActiveUsers,
		MessagesTotal,
		RequestRejections,
		DeliveryFailures,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latencies.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
