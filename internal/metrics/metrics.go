package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peerchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "peerchat_connections_active",
			Help: "Currently registered realtime connections",
		},
		[]string{"transport"},
	)

	ChannelJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerchat_channel_joins_total",
			Help: "Total channel joins",
		},
		[]string{"channel_type"},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerchat_broadcasts_total",
			Help: "Total events fanned out to channels",
		},
		[]string{"channel_type"},
	)

	SlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerchat_slow_clients_dropped_total",
			Help: "Connections dropped because their send buffer was full",
		},
	)

	TransportUpgrades = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerchat_transport_upgrades_total",
			Help: "Polling connections upgraded to websocket",
		},
	)

	// Business metrics
	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerchat_messages_persisted_total",
			Help: "Total messages persisted",
		},
		[]string{"channel_type"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerchat_expert_sessions_created_total",
			Help: "Total expert chat sessions created",
		},
	)
)

// GinMiddleware records request count and latency per route pattern.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
