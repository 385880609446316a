package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_loads_total",
		Help: "Total number of cart loads by result",
	}, []string{"result"})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart mutations by operation and result",
	}, []string{"operation", "result"})

	CheckoutSnapshotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkout_snapshots_created_total",
		Help: "Total number of checkout snapshots taken from the cart",
	})

	CheckoutSnapshotsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_snapshots_rejected_total",
		Help: "Total number of checkout snapshots discarded on read",
	}, []string{"reason"})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of orders accepted by the backend",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Total number of failed order placements",
	}, []string{"reason"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Number of browser sessions currently held in memory",
	})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_backend_request_duration_seconds",
		Help:    "Latency of requests to the commerce backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

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
