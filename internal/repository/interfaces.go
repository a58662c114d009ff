package repository

import (
	"context"
	"time"

	"github.com/vinylhouse/labelapi/internal/domain"
)

// OrderFilter narrows ListOrders. Zero values mean no filter.
type OrderFilter struct {
	Status            domain.OrderStatus
	FulfillmentStatus domain.FulfillmentStatus
	Limit             int
	Offset            int
}

// OrderRepository defines order data access methods
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	// ApplyUpdate writes every field of upd plus updated_at in one statement and
	// returns the stored row. shipped_at/delivered_at are only written when NULL.
	// The write only lands if the row is still at version; otherwise it returns
	// an ErrConflict and nothing changes.
	ApplyUpdate(ctx context.Context, id, version int64, upd domain.OrderUpdate, now time.Time) (*domain.Order, error)
}

// OrderItemRepository defines order item data access methods
type OrderItemRepository interface {
	GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderItem, error)
	UpdateFulfillmentStatus(ctx context.Context, orderID, itemID int64, status domain.ItemFulfillmentStatus) (*domain.OrderItem, error)
	// SalesSince sums item quantities per product for orders created at or after since
	SalesSince(ctx context.Context, since time.Time) (map[int64]int, error)
}

// ProductRepository defines inventory data access methods
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error)
	// SetQuantity stores an absolute, operator-supplied quantity (last writer wins)
	SetQuantity(ctx context.Context, id int64, quantity int, now time.Time) (*domain.Product, error)
	SetTracking(ctx context.Context, id int64, enabled bool, now time.Time) (*domain.Product, error)
	// AdjustQuantity applies delta atomically and refuses to go below zero
	AdjustQuantity(ctx context.Context, id int64, delta int, now time.Time) (*domain.Product, error)
}

// OrderEventRepository defines order event data access methods
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
	GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderEvent, error)
}

// Repositories aggregates all repositories
type Repositories struct {
	Order      OrderRepository
	OrderItem  OrderItemRepository
	Product    ProductRepository
	OrderEvent OrderEventRepository
}
