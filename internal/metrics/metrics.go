// Package metrics provides Prometheus instrumentation for the TON Shield API.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tonshield",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ChecksTotal counts completed risk checks by kind and resulting level.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "checks_total",
			Help:      "Total completed risk checks by kind and risk level.",
		},
		[]string{"kind", "level"},
	)

	// CheckDuration observes end-to-end analyze latency by kind.
	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tonshield",
			Name:      "check_duration_seconds",
			Help:      "End-to-end analyze duration in seconds by kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// UpstreamRequestDuration observes upstream call latency by upstream and operation.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tonshield",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds by upstream and operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"upstream", "operation"},
	)

	// UpstreamErrorsTotal counts failed upstream calls by upstream and error class.
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "upstream_errors_total",
			Help:      "Total upstream call failures by upstream and error class.",
		},
		[]string{"upstream", "class"},
	)

	// LocalScoringFallbacksTotal counts analyses scored locally because the
	// risk backend was unavailable or disabled.
	LocalScoringFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "local_scoring_fallbacks_total",
			Help:      "Total analyses scored by the local heuristic scorer by kind.",
		},
		[]string{"kind"},
	)

	// HistoryEvictionsTotal counts history entries dropped by the capacity cap.
	HistoryEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tonshield",
		Name:      "history_evictions_total",
		Help:      "Total history entries evicted by the per-user capacity cap.",
	})

	// HistoryPersistErrorsTotal counts failed history persist attempts.
	HistoryPersistErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tonshield",
		Name:      "history_persist_errors_total",
		Help:      "Total failed history persistence attempts.",
	})

	// StaleResultsTotal counts analyze results discarded as stale because a
	// newer request for the same user and kind superseded them.
	StaleResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "stale_results_total",
			Help:      "Total analyze results not persisted because a newer request superseded them.",
		},
		[]string{"kind"},
	)

	// TelegramUpdatesTotal counts processed bot webhook updates by command.
	TelegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tonshield",
			Name:      "telegram_updates_total",
			Help:      "Total processed Telegram webhook updates by command.",
		},
		[]string{"command"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tonshield",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tonshield", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChecksTotal,
		CheckDuration,
		UpstreamRequestDuration,
		UpstreamErrorsTotal,
		LocalScoringFallbacksTotal,
		HistoryEvictionsTotal,
		HistoryPersistErrorsTotal,
		StaleResultsTotal,
		TelegramUpdatesTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
