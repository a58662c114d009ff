package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/service"
)

// OrderResponse represents the order response
type OrderResponse struct {
	ID                int64                    `json:"id"`
	OrderNumber       string                   `json:"order_number"`
	Status            domain.OrderStatus       `json:"status"`
	PaymentStatus     domain.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus domain.FulfillmentStatus `json:"fulfillment_status"`
	Subtotal          string                   `json:"subtotal"`
	Tax               string                   `json:"tax"`
	Shipping          string                   `json:"shipping"`
	Discount          string                   `json:"discount"`
	Total             string                   `json:"total"`
	Currency          string                   `json:"currency"`
	TrackingNumber    *string                  `json:"tracking_number"`
	TrackingURL       *string                  `json:"tracking_url"`
	PaymentSessionID  *string                  `json:"payment_session_id,omitempty"`
	CustomerNotes     *string                  `json:"customer_notes,omitempty"`
	InternalNotes     *string                  `json:"internal_notes"`
	CreatedAt         string                   `json:"created_at"`
	UpdatedAt         string                   `json:"updated_at"`
	ShippedAt         *string                  `json:"shipped_at"`
	DeliveredAt       *string                  `json:"delivered_at"`
	Items             []OrderItemResponse      `json:"items,omitempty"`
	Events            []OrderEventResponse     `json:"events,omitempty"`
}

type OrderItemResponse struct {
	ID                int64                        `json:"id"`
	ProductID         *int64                       `json:"product_id"`
	ProductName       string                       `json:"product_name"`
	Format            string                       `json:"format"`
	UnitPrice         string                       `json:"unit_price"`
	Quantity          int                          `json:"quantity"`
	FulfillmentStatus domain.ItemFulfillmentStatus `json:"fulfillment_status"`
}

type OrderEventResponse struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"event_type"`
	EventData map[string]interface{} `json:"event_data,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// ProductResponse is a product with its derived stock level
type ProductResponse struct {
	ID                int64             `json:"id"`
	Title             string            `json:"title"`
	Format            string            `json:"format"`
	SKU               string            `json:"sku"`
	InventoryTracking bool              `json:"inventory_tracking"`
	InventoryQuantity int               `json:"inventory_quantity"`
	StockLevel        domain.StockLevel `json:"stock_level"`
	Sold              *int              `json:"sold,omitempty"`
	UpdatedAt         string            `json:"updated_at"`
}

// formatMoney renders minor units as a fixed two-decimal amount
func formatMoney(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Subtotal:          formatMoney(o.Subtotal),
		Tax:               formatMoney(o.Tax),
		Shipping:          formatMoney(o.Shipping),
		Discount:          formatMoney(o.Discount),
		Total:             formatMoney(o.Total),
		Currency:          o.Currency,
		TrackingNumber:    o.TrackingNumber,
		TrackingURL:       o.TrackingURL,
		PaymentSessionID:  o.PaymentSessionID,
		CustomerNotes:     o.CustomerNotes,
		InternalNotes:     o.InternalNotes,
		CreatedAt:         formatTime(o.CreatedAt),
		UpdatedAt:         formatTime(o.UpdatedAt),
		ShippedAt:         formatTimePtr(o.ShippedAt),
		DeliveredAt:       formatTimePtr(o.DeliveredAt),
	}
}

func toOrderDetailResponse(d *service.OrderDetail) OrderResponse {
	resp := toOrderResponse(d.Order)
	resp.Items = make([]OrderItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		resp.Items = append(resp.Items, toOrderItemResponse(it))
	}
	for _, e := range d.Events {
		resp.Events = append(resp.Events, OrderEventResponse{
			ID:        e.ID.String(),
			EventType: e.EventType,
			EventData: e.EventData,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return resp
}

func toOrderItemResponse(it *domain.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:                it.ID,
		ProductID:         it.ProductID,
		ProductName:       it.ProductName,
		Format:            it.Format,
		UnitPrice:         formatMoney(it.UnitPrice),
		Quantity:          it.Quantity,
		FulfillmentStatus: it.FulfillmentStatus,
	}
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		Title:             p.Title,
		Format:            p.Format,
		SKU:               p.SKU,
		InventoryTracking: p.InventoryTracking,
		InventoryQuantity: p.InventoryQuantity,
		StockLevel:        domain.Classify(*p),
		UpdatedAt:         formatTime(p.UpdatedAt),
	}
}
