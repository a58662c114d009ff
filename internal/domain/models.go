package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order is one purchase transaction
type Order struct {
	ID                int64
	OrderNumber       string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	Subtotal          int64 // minor currency units
	Tax               int64
	Shipping          int64
	Discount          int64
	Total             int64
	Currency          string
	TrackingNumber    *string
	TrackingURL       *string
	PaymentSessionID  *string
	PaymentIntentID   *string
	CustomerNotes     *string
	InternalNotes     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	Version           int64 // bumped by every write; guards against lost updates
}

// Clone returns a deep copy so callers can mutate it without touching shared state
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.TrackingNumber = cloneString(o.TrackingNumber)
	c.TrackingURL = cloneString(o.TrackingURL)
	c.PaymentSessionID = cloneString(o.PaymentSessionID)
	c.PaymentIntentID = cloneString(o.PaymentIntentID)
	c.CustomerNotes = cloneString(o.CustomerNotes)
	c.InternalNotes = cloneString(o.InternalNotes)
	c.ShippedAt = cloneTime(o.ShippedAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	return &c
}

// OrderItem is a line of an order. Name, format and price are a snapshot
// taken at purchase time and never follow the live catalog.
type OrderItem struct {
	ID                int64
	OrderID           int64
	ProductID         *int64
	ProductName       string
	Format            string
	UnitPrice         int64
	Quantity          int
	FulfillmentStatus ItemFulfillmentStatus
	CreatedAt         time.Time
}

// Product is the inventory-tracked part of a catalog product
type Product struct {
	ID                int64
	Title             string
	Format            string
	SKU               string
	InventoryTracking bool
	InventoryQuantity int
	UpdatedAt         time.Time
}

// OrderEvent represents a history entry for an order
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   int64
	EventType string
	EventData map[string]interface{} // JSONB
	CreatedAt time.Time
}

// Order event types
const (
	EventFieldChange           = "field_change"
	EventTrackingAttached      = "tracking_attached"
	EventTrackingCleared       = "tracking_cleared"
	EventPaymentReconciled     = "payment_reconciled"
	EventNotesUpdated          = "notes_updated"
	EventItemFulfillmentChange = "item_fulfillment_change"
)

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
