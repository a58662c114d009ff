package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const orderColumns = `id, order_number, status, payment_status, fulfillment_status,
	subtotal, tax, shipping, discount, total, currency,
	tracking_number, tracking_url, payment_session_id, payment_intent_id,
	customer_notes, internal_notes, created_at, updated_at, shipped_at, delivered_at, version`

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var trackingNumber sql.NullString
	var trackingURL sql.NullString
	var paymentSessionID sql.NullString
	var paymentIntentID sql.NullString
	var customerNotes sql.NullString
	var internalNotes sql.NullString
	var shippedAt sql.NullTime
	var deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Status,
		&order.PaymentStatus,
		&order.FulfillmentStatus,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Discount,
		&order.Total,
		&order.Currency,
		&trackingNumber,
		&trackingURL,
		&paymentSessionID,
		&paymentIntentID,
		&customerNotes,
		&internalNotes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&shippedAt,
		&deliveredAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	order.TrackingNumber = nullStringPtr(trackingNumber)
	order.TrackingURL = nullStringPtr(trackingURL)
	order.PaymentSessionID = nullStringPtr(paymentSessionID)
	order.PaymentIntentID = nullStringPtr(paymentIntentID)
	order.CustomerNotes = nullStringPtr(customerNotes)
	order.InternalNotes = nullStringPtr(internalNotes)
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Int64("order_id", id), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, &errors.ErrNotFound{Resource: "order", ID: "order_number empty"}
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderNumber}
	}
	if err != nil {
		r.logger.Error("Failed to get order by number", zap.String("order_number", orderNumber), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	var where []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.FulfillmentStatus != "" {
		args = append(args, string(filter.FulfillmentStatus))
		where = append(where, fmt.Sprintf("fulfillment_status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ApplyUpdate persists the whole write-set with a single UPDATE ... RETURNING,
// so no reader ever sees part of a cascade. The WHERE clause pins the version
// the caller read; a concurrent writer makes it match zero rows.
func (r *orderRepository) ApplyUpdate(ctx context.Context, id, version int64, upd domain.OrderUpdate, now time.Time) (*domain.Order, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	query, args := buildOrderUpdate(id, version, upd, now)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, r.missedUpdate(ctx, id)
	}
	if err != nil {
		r.logger.Error("Failed to update order",
			zap.Int64("order_id", id),
			zap.Strings("fields", upd.Fields()),
			zap.Error(err),
		)
		return nil, err
	}
	return order, nil
}

// missedUpdate tells a deleted order apart from a stale version.
func (r *orderRepository) missedUpdate(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check order existence", zap.Int64("order_id", id), zap.Error(err))
		return err
	}
	if !exists {
		return &errors.ErrNotFound{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	return &errors.ErrConflict{Resource: "order", ID: strconv.FormatInt(id, 10)}
}

func buildOrderUpdate(id, version int64, upd domain.OrderUpdate, now time.Time) (string, []interface{}) {
	args := []interface{}{id, version}
	var sets []string
	add := func(format string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(format, len(args)))
	}

	if upd.Status != nil {
		add("status = $%d", string(*upd.Status))
	}
	if upd.FulfillmentStatus != nil {
		add("fulfillment_status = $%d", string(*upd.FulfillmentStatus))
	}
	if upd.PaymentStatus != nil {
		add("payment_status = $%d", string(*upd.PaymentStatus))
	}
	if upd.ShippedAt != nil {
		add("shipped_at = COALESCE(shipped_at, $%d)", *upd.ShippedAt)
	}
	if upd.DeliveredAt != nil {
		add("delivered_at = COALESCE(delivered_at, $%d)", *upd.DeliveredAt)
	}
	if upd.Tracking != nil {
		add("tracking_number = $%d", upd.Tracking.Number)
		add("tracking_url = $%d", upd.Tracking.URL)
	}
	if upd.InternalNotes != nil {
		add("internal_notes = NULLIF($%d, '')", *upd.InternalNotes)
	}
	add("updated_at = $%d", now)
	sets = append(sets, "version = version + 1")

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND version = $2 RETURNING ` + orderColumns
	return query, args
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
