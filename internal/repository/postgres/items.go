package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const orderItemColumns = `id, order_id, product_id, product_name, format, unit_price,
	quantity, fulfillment_status, created_at`

type orderItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderItemRepository creates a new order item repository
func NewOrderItemRepository(db *sql.DB, logger *zap.Logger) *orderItemRepository {
	return &orderItemRepository{
		db:     db,
		logger: logger,
	}
}

func scanOrderItem(row rowScanner) (*domain.OrderItem, error) {
	var item domain.OrderItem
	var productID sql.NullInt64

	err := row.Scan(
		&item.ID,
		&item.OrderID,
		&productID,
		&item.ProductName,
		&item.Format,
		&item.UnitPrice,
		&item.Quantity,
		&item.FulfillmentStatus,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if productID.Valid {
		id := productID.Int64
		item.ProductID = &id
	}
	return &item, nil
}

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items by order ID", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderItemRepository) UpdateFulfillmentStatus(ctx context.Context, orderID, itemID int64, status domain.ItemFulfillmentStatus) (*domain.OrderItem, error) {
	query := `
		UPDATE order_items
		SET fulfillment_status = $3
		WHERE id = $1 AND order_id = $2
		RETURNING ` + orderItemColumns

	item, err := scanOrderItem(r.db.QueryRowContext(ctx, query, itemID, orderID, string(status)))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order_item", ID: strconv.FormatInt(itemID, 10)}
	}
	if err != nil {
		r.logger.Error("Failed to update order item fulfillment", zap.Int64("item_id", itemID), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (r *orderItemRepository) SalesSince(ctx context.Context, since time.Time) (map[int64]int, error) {
	query := `
		SELECT oi.product_id, COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND oi.product_id IS NOT NULL
		GROUP BY oi.product_id
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		r.logger.Error("Failed to aggregate sales", zap.Time("since", since), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	sales := make(map[int64]int)
	for rows.Next() {
		var productID int64
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, err
		}
		sales[productID] = quantity
	}
	return sales, rows.Err()
}
