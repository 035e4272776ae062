package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bakery_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Order Metrics
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_orders_created_total",
			Help: "Orders committed, by channel and payment method",
		},
		[]string{"order_type", "payment_method"},
	)

	OrderRevenue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_order_revenue_pounds_total",
			Help: "Sum of committed order totals in pounds",
		},
		[]string{"order_type"},
	)

	OrdersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_orders_rejected_total",
			Help: "Order submissions refused before any write",
		},
		[]string{"reason"}, // "validation", "staff", "item", "totals"
	)

	TotalsMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bakery_order_totals_mismatch_total",
			Help: "Submitted totals that disagree with catalog prices",
		},
	)

	// Audit Metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_audit_writes_total",
			Help: "Audit entries written, by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	// Messaging Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakery_events_published_total",
			Help: "Order events handed to the broker, by result",
		},
		[]string{"result"}, // "ok", "error", "breaker_open"
	)

	TicketsPrinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bakery_kitchen_tickets_printed_total",
			Help: "Kitchen tickets printed by the notifier",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOrder records a committed order
func RecordOrder(orderType, paymentMethod string, total float64) {
	OrdersCreated.WithLabelValues(orderType, paymentMethod).Inc()
	OrderRevenue.WithLabelValues(orderType).Add(total)
}

// RecordAuditWrite records the outcome of an audit append
func RecordAuditWrite(err error) {
	if err != nil {
		AuditWrites.WithLabelValues("error").Inc()
		return
	}
	AuditWrites.WithLabelValues("ok").Inc()
}
