package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/lifecycle"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// OrderDetail is an order with its lines and history
type OrderDetail struct {
	Order  *domain.Order
	Items  []*domain.OrderItem
	Events []*domain.OrderEvent
}

// OrderService applies operator changes to orders. Every write goes through
// the lifecycle package and is persisted as one atomic update; callers get
// back the stored row.
type OrderService struct {
	repos   *repository.Repositories
	clock   lifecycle.Clock
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, clock lifecycle.Clock, collector *metrics.Collector, logger *zap.Logger) *OrderService {
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &OrderService{
		repos:   repos,
		clock:   clock,
		metrics: collector,
		logger:  logger,
	}
}

// ResolveOrder finds an order by reference: a numeric id first, then an
// order number. Numeric order numbers that are not ids still resolve.
func (s *OrderService) ResolveOrder(ctx context.Context, ref string) (*domain.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewValidation("id", "order id or number is required")
	}

	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil && id > 0 {
		order, err := s.repos.Order.GetByID(ctx, id)
		if !errors.IsNotFound(err) {
			return order, err
		}
	}
	return s.repos.Order.GetByOrderNumber(ctx, ref)
}

// GetOrder resolves ref like ResolveOrder and loads the order's lines and history
func (s *OrderService) GetOrder(ctx context.Context, ref string) (*OrderDetail, error) {
	order, err := s.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}

	items, err := s.repos.OrderItem.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	events, err := s.repos.OrderEvent.GetByOrderID(ctx, order.ID)
	if err != nil {
		// History is informational
		s.logger.Warn("Failed to load order history", zap.Int64("order_id", order.ID), zap.Error(err))
		events = nil
	}
	return &OrderDetail{Order: order, Items: items, Events: events}, nil
}

// ListOrders returns orders newest first
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errors.NewValidation("status", "unknown order status %q", filter.Status)
	}
	if filter.FulfillmentStatus != "" && !filter.FulfillmentStatus.IsValid() {
		return nil, errors.NewValidation("fulfillment_status", "unknown fulfillment status %q", filter.FulfillmentStatus)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, errors.NewValidation("limit", "limit and offset must not be negative")
	}
	return s.repos.Order.List(ctx, filter)
}

// ApplyFieldChange changes status or fulfillment_status together with every
// field that must follow it.
func (s *OrderService) ApplyFieldChange(ctx context.Context, orderID int64, field, value string) (*domain.Order, error) {
	updated, diff, err := s.update(ctx, "field_change", orderID, func(order *domain.Order, now time.Time) (domain.OrderUpdate, error) {
		return lifecycle.ApplyFieldChange(order, field, value, now)
	})
	if err != nil || diff.IsEmpty() {
		return updated, err
	}

	s.recordEvent(ctx, updated.ID, domain.EventFieldChange, map[string]interface{}{
		"field":  field,
		"value":  value,
		"fields": diff.Fields(),
	})
	return updated, nil
}

// AttachTracking sets or clears the courier tracking number
func (s *OrderService) AttachTracking(ctx context.Context, orderID int64, trackingNumber, trackingURL string) (*domain.Order, error) {
	var upd domain.OrderUpdate
	updated, diff, err := s.update(ctx, "tracking", orderID, func(order *domain.Order, now time.Time) (domain.OrderUpdate, error) {
		var err error
		upd, err = lifecycle.AttachTracking(order, trackingNumber, trackingURL, now)
		return upd, err
	})
	if err != nil || diff.IsEmpty() {
		return updated, err
	}

	eventType := domain.EventTrackingAttached
	data := map[string]interface{}{"fields": diff.Fields()}
	if upd.Tracking.Number == nil {
		eventType = domain.EventTrackingCleared
	} else {
		data["tracking_number"] = *upd.Tracking.Number
	}
	s.recordEvent(ctx, updated.ID, eventType, data)
	return updated, nil
}

// UpdateInternalNotes replaces the operator notes. An empty string clears them.
func (s *OrderService) UpdateInternalNotes(ctx context.Context, orderID int64, notes string) (*domain.Order, error) {
	updated, diff, err := s.update(ctx, "notes", orderID, func(order *domain.Order, _ time.Time) (domain.OrderUpdate, error) {
		return lifecycle.UpdateInternalNotes(order, notes)
	})
	if err != nil || diff.IsEmpty() {
		return updated, err
	}

	s.recordEvent(ctx, updated.ID, domain.EventNotesUpdated, map[string]interface{}{
		"fields": diff.Fields(),
	})
	return updated, nil
}

// SetItemFulfillment changes the status of one order line. It does not
// cascade to the order.
func (s *OrderService) SetItemFulfillment(ctx context.Context, orderID, itemID int64, value string) (*domain.OrderItem, error) {
	status, ok := domain.ParseItemFulfillmentStatus(value)
	if !ok {
		return nil, errors.NewValidation("fulfillment_status", "unknown item fulfillment status %q", value)
	}
	if _, err := s.repos.Order.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	item, err := s.repos.OrderItem.UpdateFulfillmentStatus(ctx, orderID, itemID, status)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderChange("item_fulfillment", "applied")
	s.recordEvent(ctx, orderID, domain.EventItemFulfillmentChange, map[string]interface{}{
		"item_id":            itemID,
		"fulfillment_status": string(status),
	})
	return item, nil
}

// maxWriteAttempts bounds how often a write is recomputed after losing a race
const maxWriteAttempts = 3

// update reads the order, computes the write-set from that read and writes
// the changed part conditionally on the version it read. On a conflict the
// whole cycle runs again, so rules are always checked against the row being
// replaced. It returns the stored order and the diff that was written (empty
// when the order was already in the requested state).
func (s *OrderService) update(ctx context.Context, op string, orderID int64, compute func(*domain.Order, time.Time) (domain.OrderUpdate, error)) (*domain.Order, domain.OrderUpdate, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.repos.Order.GetByID(ctx, orderID)
		if err != nil {
			return nil, domain.OrderUpdate{}, err
		}

		now := s.clock.Now()
		upd, err := compute(order, now)
		if err != nil {
			s.metrics.RecordOrderChange(op, "rejected")
			s.logger.Info("Order change rejected",
				zap.Int64("order_id", orderID),
				zap.String("operation", op),
				zap.Error(err),
			)
			return nil, domain.OrderUpdate{}, err
		}

		diff := upd.Diff(order)
		if diff.IsEmpty() {
			s.metrics.RecordOrderChange(op, "unchanged")
			s.logger.Debug("Order already in requested state", zap.Int64("order_id", order.ID), zap.String("operation", op))
			return order, diff, nil
		}

		updated, err := s.repos.Order.ApplyUpdate(ctx, order.ID, order.Version, diff, now)
		if errors.IsConflict(err) && attempt < maxWriteAttempts {
			s.logger.Debug("Order changed concurrently, recomputing",
				zap.Int64("order_id", order.ID),
				zap.String("operation", op),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			s.metrics.RecordOrderChange(op, "error")
			s.logger.Error("Failed to persist order update",
				zap.Int64("order_id", order.ID),
				zap.Strings("fields", diff.Fields()),
				zap.Error(err),
			)
			return nil, domain.OrderUpdate{}, err
		}

		s.metrics.RecordOrderChange(op, "applied")
		s.logger.Info("Order updated",
			zap.Int64("order_id", updated.ID),
			zap.String("order_number", updated.OrderNumber),
			zap.String("operation", op),
			zap.Strings("fields", diff.Fields()),
			zap.String("status", string(updated.Status)),
			zap.String("fulfillment_status", string(updated.FulfillmentStatus)),
		)
		return updated, diff, nil
	}
}

// recordEvent appends to the order history. History is best effort.
func (s *OrderService) recordEvent(ctx context.Context, orderID int64, eventType string, data map[string]interface{}) {
	recordEvent(ctx, s.repos.OrderEvent, s.logger, orderID, eventType, data)
}

func recordEvent(ctx context.Context, events repository.OrderEventRepository, logger *zap.Logger, orderID int64, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	if err := events.Create(ctx, event); err != nil {
		logger.Warn("Failed to record order event",
			zap.Int64("order_id", orderID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
