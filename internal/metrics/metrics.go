package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeCommitted  = "committed"
	OutcomeRejected   = "rejected"
	OutcomeContention = "contention"
	OutcomeFailed     = "failed"
)

var (
	passesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_engine",
			Name:      "passes_total",
			Help:      "Matching passes by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	passDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auction_engine",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a matching pass including lock acquisition",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"},
	)

	tradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "auction_engine",
			Name:      "trades_total",
			Help:      "Trades committed",
		},
	)

	contentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "auction_engine",
			Name:      "contention_total",
			Help:      "Exclusive scope acquisitions that timed out",
		},
	)
)

// ObservePass records the outcome and latency of one engine operation
func ObservePass(operation, outcome string, started time.Time) {
	passesTotal.WithLabelValues(operation, outcome).Inc()
	passDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if outcome == OutcomeContention {
		contentionTotal.Inc()
	}
}

// AddTrades counts committed trades
func AddTrades(n int) {
	if n > 0 {
		tradesTotal.Add(float64(n))
	}
}

var httpRequests = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "auction_engine",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP requests by method, route pattern and status",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// ObserveRequest records one served HTTP request
func ObserveRequest(method, route, status string, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
