package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmfuzion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmfuzion_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmfuzion_ledger_transactions_total",
			Help: "Total number of wallet ledger transactions",
		},
		[]string{"type", "status"},
	)

	WithdrawalQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmfuzion_withdrawal_queue_length",
			Help: "Current length of the withdrawal confirmation queue",
		},
	)

	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmfuzion_checkouts_total",
			Help: "Total number of checkout attempts",
		},
		[]string{"status"},
	)

	OrdersPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmfuzion_orders_paid_total",
			Help: "Total number of orders paid through the wallet ledger",
		},
	)

	StockReservationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmfuzion_stock_reservation_failures_total",
			Help: "Checkouts rejected because a listing ran out of stock",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerTransaction(txType, status string) {
	LedgerTransactionsTotal.WithLabelValues(txType, status).Inc()
}

func RecordCheckout(status string) {
	CheckoutsTotal.WithLabelValues(status).Inc()
}

func RecordOrderPaid() {
	OrdersPaidTotal.Inc()
}

func RecordStockReservationFailure() {
	StockReservationFailures.Inc()
}
