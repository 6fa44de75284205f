package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	OrderCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_create_latency_seconds",
		Help:    "Latency of order creation including the ledger transaction",
		Buckets: prometheus.DefBuckets,
	})

	ProductsAutoCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_auto_created_total",
		Help: "Total number of products created while recording an order",
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_updates_total",
		Help: "Total number of order status updates",
	}, []string{"status"})

	UnknownStatusLabelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_status_unknown_labels_total",
		Help: "Total number of status updates with an unrecognized label",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications delivered",
	}, []string{"kind"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notifications that could not be delivered",
	}, []string{"kind"})

	FavoritesPersistFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "favorites_persist_failed_total",
		Help: "Total number of failed favorites document writes",
	})

	ResetTokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reset_tokens_issued_total",
		Help: "Total number of password reset tokens issued",
	})

	ResetTokensConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reset_tokens_consumed_total",
		Help: "Total number of password reset attempts by result",
	}, []string{"result"})

	AssetUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_uploads_total",
		Help: "Total number of image uploads by result",
	}, []string{"result"})

	AssetUploadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "asset_upload_latency_seconds",
		Help:    "Latency of image uploads to the asset host",
		Buckets: prometheus.DefBuckets,
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
