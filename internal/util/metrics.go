package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock adjustments by result",
	}, []string{"result"})

	StockRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Total number of adjustments rejected for insufficient stock",
	})

	StockAdjustLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_adjust_latency_seconds",
		Help:    "Latency of stock adjustment operations",
		Buckets: prometheus.DefBuckets,
	})

	SalesCommittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_committed_total",
		Help: "Total number of committed sales by payment method",
	}, []string{"payment_method"})

	SaleCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_commit_latency_seconds",
		Help:    "Latency of sale commits end to end",
		Buckets: prometheus.DefBuckets,
	})

	SaleCommitFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_commit_failed_total",
		Help: "Total number of failed sale commits",
	}, []string{"reason"})

	CartReleasesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_releases_failed_total",
		Help: "Total number of best-effort stock releases that failed remotely",
	})

	CacheReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_cache_reads_total",
		Help: "Total number of snapshot cache reads by kind and freshness",
	}, []string{"kind", "fresh"})

	CacheRefreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_cache_refresh_failures_total",
		Help: "Total number of failed snapshot refreshes",
	}, []string{"kind"})

	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_retry_attempts_total",
		Help: "Total number of retried remote attempts by operation",
	}, []string{"op"})

	RemoteReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_reconnects_total",
		Help: "Total number of forced remote reconnects",
	})

	ConnectivityState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "remote_connectivity_state",
		Help: "Remote connectivity state (0=unknown, 1=connected, 2=disconnected)",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
