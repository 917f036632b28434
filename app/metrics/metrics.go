package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route template and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogfront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogfront_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// StoreQueries counts executed query plans by primary entity and outcome.
	StoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogfront_store_queries_total",
			Help: "Total number of store queries",
		},
		[]string{"entity", "status"},
	)
)
