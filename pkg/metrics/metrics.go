// Package metrics provides Prometheus metrics for the adsync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal tracks completed sync runs by job and outcome
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by job and status",
		},
		[]string{"job", "status"},
	)

	// SyncRunDuration tracks sync run duration in seconds
	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adsync",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of sync runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	// SyncRowsProcessed tracks rows written per sync run
	SyncRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "sync",
			Name:      "rows_processed_total",
			Help:      "Total number of rows processed by sync jobs",
		},
		[]string{"job"},
	)

	// SyncRowErrors tracks per-row failures accumulated during sync runs
	SyncRowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "sync",
			Name:      "row_errors_total",
			Help:      "Total number of per-row sync failures",
		},
		[]string{"job"},
	)

	// SyncSkippedRuns tracks runs skipped because the previous one was still going
	SyncSkippedRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "sync",
			Name:      "skipped_runs_total",
			Help:      "Total number of sync runs skipped because one was already in progress",
		},
		[]string{"job"},
	)

	// GraphRequestsTotal tracks outbound Graph API requests
	GraphRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "graph",
			Name:      "requests_total",
			Help:      "Total number of outbound Graph API requests",
		},
		[]string{"method", "status_code"},
	)

	// GraphRequestDuration tracks outbound Graph API request duration
	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adsync",
			Subsystem: "graph",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound Graph API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// GraphRetriesTotal tracks retried Graph API requests
	GraphRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "graph",
			Name:      "retries_total",
			Help:      "Total number of retried Graph API requests",
		},
	)

	// CacheHitsTotal tracks cache hits by namespace
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"backend"},
	)

	// CacheMissesTotal tracks cache misses
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
	)

	// CacheFallbacksTotal tracks operations served by the in-process store
	// because Redis was unavailable
	CacheFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "cache",
			Name:      "fallbacks_total",
			Help:      "Total number of cache operations that fell back to the in-process store",
		},
	)

	// RateLimitRejections tracks requests rejected by the request guard
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// SecurityEventsTotal tracks security events recorded by the request guard
	SecurityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "guard",
			Name:      "security_events_total",
			Help:      "Total number of security events by type and severity",
		},
		[]string{"event", "severity"},
	)

	// WebhookEventsTotal tracks received webhook deliveries by outcome
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adsync",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)
