package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "labelapi"

// Collector records back-office activity as prometheus series
type Collector struct {
	orderChanges    *prometheus.CounterVec
	reconciles      *prometheus.CounterVec
	paymentRequests *prometheus.HistogramVec
	bulkItems       *prometheus.CounterVec
	salesDegraded   prometheus.Counter
	httpRequests    *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		orderChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_changes_total",
			Help:      "Order mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconciles_total",
			Help:      "Payment reconciliations by outcome.",
		}, []string{"outcome"}),
		paymentRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_request_duration_seconds",
			Help:      "Latency of payment authority lookups by response class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code"}),
		bulkItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_inventory_items_total",
			Help:      "Bulk inventory items by outcome.",
		}, []string{"outcome"}),
		salesDegraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_degraded_total",
			Help:      "Sales aggregations that fell back to an empty result.",
		}),
		httpRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// NewNop returns a collector bound to a throwaway registry
func NewNop() *Collector {
	return New(prometheus.NewRegistry())
}

func (c *Collector) RecordOrderChange(operation, outcome string) {
	c.orderChanges.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordReconcile(outcome string) {
	c.reconciles.WithLabelValues(outcome).Inc()
}

// RecordPaymentRequest takes the HTTP status, or 0 for a transport failure
func (c *Collector) RecordPaymentRequest(status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.paymentRequests.WithLabelValues(code).Observe(elapsed.Seconds())
}

func (c *Collector) RecordBulkItem(outcome string) {
	c.bulkItems.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSalesDegraded() {
	c.salesDegraded.Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
