// Package metrics holds the Prometheus collectors of the ledger service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reward_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "ledger",
			Name:      "claims_total",
			Help:      "Task claims by outcome.",
		},
		[]string{"outcome"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "ledger",
			Name:      "withdrawal_requests_total",
			Help:      "Withdrawal requests by outcome.",
		},
		[]string{"outcome"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "payout",
			Name:      "resolutions_total",
			Help:      "Payout resolutions by outcome. Duplicates are counted as ignored.",
		},
		[]string{"outcome"},
	)

	conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "ledger",
			Name:      "conflict_retries_total",
			Help:      "Units of work retried after a store conflict.",
		},
		[]string{"operation"},
	)

	reconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reward_ledger",
			Subsystem: "payout",
			Name:      "reconciled_total",
			Help:      "Pending withdrawals touched by reconciliation jobs.",
		},
		[]string{"job"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		claims,
		withdrawals,
		payouts,
		conflictRetries,
		reconciled,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordClaim(outcome string) { claims.WithLabelValues(outcome).Inc() }
func RecordWithdrawal(outcome string) { withdrawals.WithLabelValues(outcome).Inc() }
func RecordPayout(outcome string) { payouts.WithLabelValues(outcome).Inc() }
func RecordConflictRetry(operation string) { conflictRetries.WithLabelValues(operation).Inc() }

// RecordReconciled adds n to the counter of the named reconciliation job.
func RecordReconciled(job string, n int) {
	if n <= 0 {
		return
	}
	reconciled.WithLabelValues(job).Add(float64(n))
}
