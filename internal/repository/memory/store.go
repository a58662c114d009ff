// Package memory is an in-process implementation of the repositories with
// the same single-row atomicity guarantees as the postgres store. It backs
// local development (STORE_DRIVER=memory) and the service and API tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// Store holds all rows behind one mutex
type Store struct {
	mu       sync.RWMutex
	orders   map[int64]*domain.Order
	items    map[int64]*domain.OrderItem
	products map[int64]*domain.Product
	events   []*domain.OrderEvent

	productWriteErr map[int64]error
	salesErr        error
	nextID          int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		orders:          make(map[int64]*domain.Order),
		items:           make(map[int64]*domain.OrderItem),
		products:        make(map[int64]*domain.Product),
		productWriteErr: make(map[int64]error),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Order:      &orderRepository{s: s},
		OrderItem:  &orderItemRepository{s: s},
		Product:    &productRepository{s: s},
		OrderEvent: &orderEventRepository{s: s},
	}
}

// PutOrder inserts or replaces an order. A zero ID is assigned.
func (s *Store) PutOrder(o *domain.Order) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := o.Clone()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.orders[c.ID] = c
	return c.Clone()
}

// PutItem inserts or replaces an order item. A zero ID is assigned.
func (s *Store) PutItem(it *domain.OrderItem) *domain.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *it
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.items[c.ID] = &c
	out := c
	return &out
}

// PutProduct inserts or replaces a product. A zero ID is assigned.
func (s *Store) PutProduct(p *domain.Product) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.products[c.ID] = &c
	out := c
	return &out
}

// FailProductWrites makes every write to the product return err (nil to reset)
func (s *Store) FailProductWrites(id int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.productWriteErr, id)
		return
	}
	s.productWriteErr[id] = err
}

// FailSales makes SalesSince return err (nil to reset)
func (s *Store) FailSales(err error) {
	s.mu.Lock()
	s.salesErr = err
	s.mu.Unlock()
}

type orderRepository struct{ s *Store }

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	return o.Clone(), nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == orderNumber {
			return o.Clone(), nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: orderNumber}
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.FulfillmentStatus != "" && o.FulfillmentStatus != filter.FulfillmentStatus {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *orderRepository) ApplyUpdate(ctx context.Context, id, version int64, upd domain.OrderUpdate, now time.Time) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	if upd.IsEmpty() {
		return o.Clone(), nil
	}
	if o.Version != version {
		return nil, &errors.ErrConflict{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	next := upd.ApplyTo(o)
	next.UpdatedAt = now
	next.Version = o.Version + 1
	r.s.orders[id] = next
	return next.Clone(), nil
}

type orderItemRepository struct{ s *Store }

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.OrderItem
	for _, it := range r.s.items {
		if it.OrderID == orderID {
			c := *it
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *orderItemRepository) UpdateFulfillmentStatus(ctx context.Context, orderID, itemID int64, status domain.ItemFulfillmentStatus) (*domain.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[itemID]
	if !ok || it.OrderID != orderID {
		return nil, &errors.ErrNotFound{Resource: "order_item", ID: strconv.FormatInt(itemID, 10)}
	}
	it.FulfillmentStatus = status
	c := *it
	return &c, nil
}

func (r *orderItemRepository) SalesSince(ctx context.Context, since time.Time) (map[int64]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.salesErr != nil {
		return nil, r.s.salesErr
	}
	sales := make(map[int64]int)
	for _, it := range r.s.items {
		if it.ProductID == nil {
			continue
		}
		o, ok := r.s.orders[it.OrderID]
		if !ok || o.CreatedAt.Before(since) {
			continue
		}
		sales[*it.ProductID] += it.Quantity
	}
	return sales, nil
}

type productRepository struct{ s *Store }

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}
	c := *p
	return &c, nil
}

func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepository) SetQuantity(ctx context.Context, id int64, quantity int, now time.Time) (*domain.Product, error) {
	return r.mutate(id, func(p *domain.Product) error {
		p.InventoryQuantity = quantity
		p.UpdatedAt = now
		return nil
	})
}

func (r *productRepository) SetTracking(ctx context.Context, id int64, enabled bool, now time.Time) (*domain.Product, error) {
	return r.mutate(id, func(p *domain.Product) error {
		*p = p.WithTracking(enabled)
		p.UpdatedAt = now
		return nil
	})
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id int64, delta int, now time.Time) (*domain.Product, error) {
	return r.mutate(id, func(p *domain.Product) error {
		if p.InventoryQuantity+delta < 0 {
			return errors.NewValidation("delta",
				"adjustment of %d would take quantity %d below zero", delta, p.InventoryQuantity)
		}
		p.InventoryQuantity += delta
		p.UpdatedAt = now
		return nil
	})
}

func (r *productRepository) mutate(id int64, fn func(p *domain.Product) error) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.productWriteErr[id]; err != nil {
		return nil, err
	}
	p, ok := r.s.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}
	next := *p
	if err := fn(&next); err != nil {
		return nil, err
	}
	r.s.products[id] = &next
	out := next
	return &out, nil
}

type orderEventRepository struct{ s *Store }

func (r *orderEventRepository) Create(ctx context.Context, event *domain.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	c := *event
	r.s.events = append(r.s.events, &c)
	return nil
}

func (r *orderEventRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.OrderEvent
	for _, e := range r.s.events {
		if e.OrderID == orderID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}
