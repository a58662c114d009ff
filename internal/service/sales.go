package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/repository"
)

// SalesWindow is the per-product quantity sold since Since. Display only.
type SalesWindow struct {
	Since    time.Time
	Sold     map[int64]int
	Degraded bool // the store failed and Sold is empty
}

// SalesAggregator rolls order lines up into per-product sales
type SalesAggregator struct {
	items   repository.OrderItemRepository
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewSalesAggregator creates a sales aggregator
func NewSalesAggregator(items repository.OrderItemRepository, collector *metrics.Collector, logger *zap.Logger) *SalesAggregator {
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &SalesAggregator{items: items, metrics: collector, logger: logger}
}

// SalesSince never fails: a store error yields an empty, degraded window
func (a *SalesAggregator) SalesSince(ctx context.Context, since time.Time) SalesWindow {
	sold, err := a.items.SalesSince(ctx, since)
	if err != nil {
		a.metrics.RecordSalesDegraded()
		a.logger.Warn("Sales aggregation unavailable, showing no sales", zap.Time("since", since), zap.Error(err))
		return SalesWindow{Since: since, Sold: map[int64]int{}, Degraded: true}
	}
	if sold == nil {
		sold = map[int64]int{}
	}
	return SalesWindow{Since: since, Sold: sold}
}
