package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/lifecycle"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const (
	defaultBulkConcurrency = 8
	defaultSalesWindow     = 30 * 24 * time.Hour
)

// QuantityUpdate sets the absolute stock count of one product
type QuantityUpdate struct {
	ProductID int64
	Quantity  int
}

// BulkFailure is one rejected item of a batch
type BulkFailure struct {
	ProductID int64
	Err       error
}

// BulkResult lists applied and failed product ids, each in input order.
// A batch is not atomic: applied items stay applied when others fail.
type BulkResult struct {
	Applied []int64
	Failed  []BulkFailure
}

// InventoryRow is one line of the inventory report
type InventoryRow struct {
	Product *domain.Product
	Level   domain.StockLevel
	Sold    int
}

// InventoryReport is the stock overview with trailing-window sales
type InventoryReport struct {
	Rows          []InventoryRow
	SalesSince    time.Time
	SalesDegraded bool
}

// InventoryService owns stock counts and the tracking flag
type InventoryService struct {
	repos       *repository.Repositories
	sales       *SalesAggregator
	clock       lifecycle.Clock
	concurrency int
	salesWindow time.Duration
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// InventoryOptions tunes the inventory service. Zero values use defaults.
type InventoryOptions struct {
	BulkConcurrency int
	SalesWindow     time.Duration
}

// NewInventoryService creates a new inventory service
func NewInventoryService(repos *repository.Repositories, clock lifecycle.Clock, opts InventoryOptions, collector *metrics.Collector, logger *zap.Logger) *InventoryService {
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	if opts.BulkConcurrency < 1 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	if opts.SalesWindow <= 0 {
		opts.SalesWindow = defaultSalesWindow
	}
	return &InventoryService{
		repos:       repos,
		sales:       NewSalesAggregator(repos.OrderItem, collector, logger),
		clock:       clock,
		concurrency: opts.BulkConcurrency,
		salesWindow: opts.SalesWindow,
		metrics:     collector,
		logger:      logger,
	}
}

// ApplyBulk writes each quantity independently with bounded parallelism.
// Invalid items (negative quantity, bad id, id repeated in the batch) fail
// without being written; every occurrence of a repeated id fails.
func (s *InventoryService) ApplyBulk(ctx context.Context, updates []QuantityUpdate) BulkResult {
	errs := make([]error, len(updates))

	counts := make(map[int64]int, len(updates))
	for _, u := range updates {
		counts[u.ProductID]++
	}
	for i, u := range updates {
		switch {
		case u.ProductID <= 0:
			errs[i] = errors.NewValidation("product_id", "product id must be positive")
		case u.Quantity < 0:
			errs[i] = errors.NewValidation("quantity", "quantity must not be negative (got %d)", u.Quantity)
		case counts[u.ProductID] > 1:
			errs[i] = errors.NewValidation("product_id", "product %d appears more than once in the batch", u.ProductID)
		}
	}

	now := s.clock.Now()
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range updates {
		if errs[i] != nil {
			continue
		}
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			_, err := s.repos.Product.SetQuantity(ctx, u.ProductID, u.Quantity, now)
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	for i, u := range updates {
		if errs[i] != nil {
			s.metrics.RecordBulkItem("failed")
			result.Failed = append(result.Failed, BulkFailure{ProductID: u.ProductID, Err: errs[i]})
			continue
		}
		s.metrics.RecordBulkItem("applied")
		result.Applied = append(result.Applied, u.ProductID)
	}

	s.logger.Info("Bulk inventory update finished",
		zap.Int("items", len(updates)),
		zap.Int("applied", len(result.Applied)),
		zap.Int("failed", len(result.Failed)),
	)
	return result
}

// SetTracking turns stock tracking on or off. The stored count is kept.
func (s *InventoryService) SetTracking(ctx context.Context, productID int64, enabled bool) (*domain.Product, error) {
	if productID <= 0 {
		return nil, errors.NewValidation("product_id", "product id must be positive")
	}
	p, err := s.repos.Product.SetTracking(ctx, productID, enabled, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inventory tracking changed", zap.Int64("product_id", productID), zap.Bool("enabled", enabled))
	return p, nil
}

// AdjustStock adds delta to the stored count atomically. The count never
// goes below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	if productID <= 0 {
		return nil, errors.NewValidation("product_id", "product id must be positive")
	}
	if delta == 0 {
		return nil, errors.NewValidation("delta", "delta must not be zero")
	}
	p, err := s.repos.Product.AdjustQuantity(ctx, productID, delta, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inventory adjusted",
		zap.Int64("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("quantity", p.InventoryQuantity),
	)
	return p, nil
}

// Products returns the current state of the given products
func (s *InventoryService) Products(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	return s.repos.Product.ListByIDs(ctx, ids)
}

// Report lists every product with its stock level and recent sales
func (s *InventoryService) Report(ctx context.Context) (*InventoryReport, error) {
	products, err := s.repos.Product.List(ctx)
	if err != nil {
		return nil, err
	}

	window := s.sales.SalesSince(ctx, s.clock.Now().Add(-s.salesWindow))
	report := &InventoryReport{
		Rows:          make([]InventoryRow, 0, len(products)),
		SalesSince:    window.Since,
		SalesDegraded: window.Degraded,
	}
	for _, p := range products {
		report.Rows = append(report.Rows, InventoryRow{
			Product: p,
			Level:   domain.Classify(*p),
			Sold:    window.Sold[p.ID],
		})
	}
	return report, nil
}
