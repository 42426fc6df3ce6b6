package notion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "instaplan_notion_requests_total",
		Help: "The total number of requests sent to the Notion API",
	}, []string{"operation", "status"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instaplan_notion_request_duration_seconds",
		Help:    "Latency of Notion API requests",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // Start at 10ms, double each bucket
	}, []string{"operation"})
)
