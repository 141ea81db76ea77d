package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Commits counts batch commits by result (ok, invalid, failed).
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "commits_total",
		Help:      "Attendance batch commits by result.",
	}, []string{"result"})

	// CommittedEntries observes the size of successful batches.
	CommittedEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "committed_entries",
		Help:      "Entries per successful attendance batch.",
		Buckets:   []float64{1, 5, 10, 20, 40, 80},
	})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "store_duration_seconds",
		Help:      "Latency of attendance store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// CacheLookups counts statistics/history cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "cache_lookups_total",
		Help:      "Read cache lookups by kind and result.",
	}, []string{"kind", "result"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	// WarmRuns counts cache warm-ups done by the worker by trigger and result.
	WarmRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "warm_runs_total",
		Help:      "Cache warm-ups by trigger and result.",
	}, []string{"trigger", "result"})
)

// ObserveStore records the duration of a store op started at start.
// Use with defer: defer metrics.ObserveStore("op", time.Now()).
func ObserveStore(op string, start time.Time) {
	storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
