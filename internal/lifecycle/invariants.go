package lifecycle

import (
	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// CheckInvariants validates a candidate order state:
//
//	fulfillment_status=fulfilled => status=delivered and delivered_at set
//	tracking_number set          => status in {shipped, delivered} and shipped_at set
//	created_at <= shipped_at <= delivered_at where present
func CheckInvariants(o *domain.Order) error {
	if o.FulfillmentStatus == domain.FulfillmentStatusFulfilled {
		if o.Status != domain.OrderStatusDelivered {
			return errors.NewValidation(FieldStatus,
				"a fulfilled order must be delivered (got status %q); change fulfillment_status first", o.Status)
		}
		if o.DeliveredAt == nil {
			return errors.NewValidation("delivered_at", "a fulfilled order must have a delivery time")
		}
	}

	if o.TrackingNumber != nil {
		if o.Status != domain.OrderStatusShipped && o.Status != domain.OrderStatusDelivered {
			return errors.NewValidation(FieldStatus,
				"an order with a tracking number must be shipped or delivered (got %q); clear tracking first", o.Status)
		}
		if o.ShippedAt == nil {
			return errors.NewValidation("shipped_at", "an order with a tracking number must have a ship time")
		}
	}

	if o.ShippedAt != nil && !o.CreatedAt.IsZero() && o.ShippedAt.Before(o.CreatedAt) {
		return errors.NewValidation("shipped_at", "ship time precedes order creation")
	}
	if o.DeliveredAt != nil {
		if !o.CreatedAt.IsZero() && o.DeliveredAt.Before(o.CreatedAt) {
			return errors.NewValidation("delivered_at", "delivery time precedes order creation")
		}
		if o.ShippedAt != nil && o.DeliveredAt.Before(*o.ShippedAt) {
			return errors.NewValidation("delivered_at", "delivery time precedes ship time")
		}
	}
	return nil
}
