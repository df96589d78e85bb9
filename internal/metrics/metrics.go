// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talenthub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talenthub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Messaging
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talenthub_messages_sent_total",
			Help: "Total number of messages accepted",
		},
	)

	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talenthub_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)

	ConversationCreateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talenthub_conversation_create_conflicts_total",
			Help: "Concurrent creations resolved by re-reading the winning row",
		},
	)

	// Trust and safety
	BlocksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talenthub_blocks_created_total",
			Help: "Total number of new block relations",
		},
	)

	ReportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talenthub_reports_created_total",
			Help: "Total number of content reports by type",
		},
		[]string{"type"},
	)

	ReportTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talenthub_report_transitions_total",
			Help: "Report status transitions by target status",
		},
		[]string{"status"},
	)

	UsersSuspended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talenthub_users_suspended_total",
			Help: "Accounts suspended as a report outcome",
		},
	)

	FilterVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talenthub_content_filter_verdicts_total",
			Help: "Content filter classifications by verdict and source",
		},
		[]string{"verdict", "source"},
	)

	EulaActiveVersions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talenthub_eula_active_versions",
			Help: "Number of EULA versions flagged active at last read (should be 1)",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talenthub_notification_failures_total",
			Help: "Best-effort notifications that could not be handed off",
		},
		[]string{"kind"},
	)
)

// Middleware records request count and latency. The route template is used
// as the path label so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
