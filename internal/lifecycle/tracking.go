package lifecycle

import (
	"strings"
	"time"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const maxTrackingLength = 255

// AttachTracking returns the write-set for attaching or clearing a courier
// tracking number.
//
// A non-empty number marks the order shipped (fulfillment partial) and stamps
// shipped_at only if it was never set, so re-attaching never rewinds it.
// An empty number clears both tracking columns and nothing else: clearing a
// courier code does not un-ship an order.
func AttachTracking(order *domain.Order, trackingNumber, trackingURL string, now time.Time) (domain.OrderUpdate, error) {
	if order == nil {
		return domain.OrderUpdate{}, &errors.ErrNotFound{Resource: "order", ID: "nil"}
	}

	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return domain.OrderUpdate{Tracking: &domain.TrackingUpdate{}}, nil
	}
	if len(number) > maxTrackingLength {
		return domain.OrderUpdate{}, errors.NewValidation("tracking_number", "tracking number exceeds %d characters", maxTrackingLength)
	}

	tracking := &domain.TrackingUpdate{Number: &number}
	if url := strings.TrimSpace(trackingURL); url != "" {
		if len(url) > 2048 {
			return domain.OrderUpdate{}, errors.NewValidation("tracking_url", "tracking URL is too long")
		}
		tracking.URL = &url
	}

	upd := domain.OrderUpdate{
		Tracking:          tracking,
		Status:            orderStatusPtr(domain.OrderStatusShipped),
		FulfillmentStatus: fulfillmentPtr(domain.FulfillmentStatusPartial),
	}
	if order.ShippedAt == nil {
		upd.ShippedAt = timePtr(now)
	}

	if err := CheckInvariants(upd.ApplyTo(order)); err != nil {
		return domain.OrderUpdate{}, err
	}
	return upd, nil
}
