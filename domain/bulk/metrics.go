package bulk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_bulk_operations_total",
			Help: "Bulk operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_bulk_operation_duration_seconds",
			Help:    "Duration of bulk operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_bulk_items_total",
			Help: "Users processed by bulk operations, by result",
		},
		[]string{"operation", "result"},
	)
)

func observeOperation(op Operation, outcome string, d time.Duration) {
	operationsTotal.WithLabelValues(string(op), outcome).Inc()
	operationDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

func observeItems(op Operation, r *Result) {
	itemsTotal.WithLabelValues(string(op), "success").Add(float64(r.Success))
	itemsTotal.WithLabelValues(string(op), "failed").Add(float64(r.Failed))
	itemsTotal.WithLabelValues(string(op), "skipped").Add(float64(r.Skipped))
}
