package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const productColumns = `id, title, format, sku, inventory_tracking, inventory_quantity, updated_at`

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product inventory repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Format,
		&p.SKU,
		&p.InventoryTracking,
		&p.InventoryQuantity,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID", zap.Int64("product_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id ASC`
	return r.query(ctx, query)
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id ASC`
	return r.query(ctx, query, pq.Array(ids))
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) SetQuantity(ctx context.Context, id int64, quantity int, now time.Time) (*domain.Product, error) {
	query := `
		UPDATE products
		SET inventory_quantity = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + productColumns

	return r.updateOne(ctx, "set quantity", id, query, id, quantity, now)
}

func (r *productRepository) SetTracking(ctx context.Context, id int64, enabled bool, now time.Time) (*domain.Product, error) {
	// inventory_quantity is left alone so re-enabling resumes from the last count
	query := `
		UPDATE products
		SET inventory_tracking = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + productColumns

	return r.updateOne(ctx, "set tracking", id, query, id, enabled, now)
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id int64, delta int, now time.Time) (*domain.Product, error) {
	query := `
		UPDATE products
		SET inventory_quantity = inventory_quantity + $2, updated_at = $3
		WHERE id = $1 AND inventory_quantity + $2 >= 0
		RETURNING ` + productColumns

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id, delta, now))
	if err == sql.ErrNoRows {
		// Either the product is gone or the guard refused the delta
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, errors.NewValidation("delta",
			"adjustment of %d would take quantity %d below zero", delta, current.InventoryQuantity)
	}
	if err != nil {
		r.logger.Error("Failed to adjust product quantity", zap.Int64("product_id", id), zap.Int("delta", delta), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *productRepository) updateOne(ctx context.Context, op string, id int64, query string, args ...interface{}) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		r.logger.Error("Failed to update product", zap.String("op", op), zap.Int64("product_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}
