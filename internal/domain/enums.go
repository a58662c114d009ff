package domain

import "strings"

// OrderStatus is the commerce lifecycle of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// ParseOrderStatus normalizes and validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// PaymentStatus is the locally cached payment processor state.
// The processor owns this vocabulary, so values outside the known set
// can be stored (see IsKnown).
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// IsKnown reports whether the value belongs to the local vocabulary
func (s PaymentStatus) IsKnown() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// FulfillmentStatus is the shipping/delivery progress of an order
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusPartial     FulfillmentStatus = "partial"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
)

// IsValid checks if the fulfillment status is valid
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusPartial, FulfillmentStatusFulfilled:
		return true
	default:
		return false
	}
}

// ParseFulfillmentStatus normalizes and validates a raw fulfillment value.
func ParseFulfillmentStatus(raw string) (FulfillmentStatus, bool) {
	s := FulfillmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// ItemFulfillmentStatus is the per-line fulfillment state of an order item
type ItemFulfillmentStatus string

const (
	ItemFulfillmentUnfulfilled ItemFulfillmentStatus = "unfulfilled"
	ItemFulfillmentFulfilled   ItemFulfillmentStatus = "fulfilled"
	ItemFulfillmentReturned    ItemFulfillmentStatus = "returned"
)

// IsValid checks if the item fulfillment status is valid
func (s ItemFulfillmentStatus) IsValid() bool {
	switch s {
	case ItemFulfillmentUnfulfilled, ItemFulfillmentFulfilled, ItemFulfillmentReturned:
		return true
	default:
		return false
	}
}

// ParseItemFulfillmentStatus normalizes and validates a raw item fulfillment value.
func ParseItemFulfillmentStatus(raw string) (ItemFulfillmentStatus, bool) {
	s := ItemFulfillmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// StockLevel is the derived inventory health of a product. Never stored.
type StockLevel string

const (
	StockNotTracked StockLevel = "not_tracked"
	StockOut        StockLevel = "out"
	StockLow        StockLevel = "low"
	StockGood       StockLevel = "good"
)
