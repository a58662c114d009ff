package lifecycle

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vinylhouse/labelapi/internal/domain"
)

var (
	orderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled", "refunded"}
	fulfillments  = []string{"unfulfilled", "partial", "fulfilled"}
	payments      = []string{"pending", "paid", "failed", "refunded", "partially_refunded", "unpaid"}
)

// Random operator and processor activity must never produce an order that
// breaks the invariants, and the first ship/delivery times never move.
func TestLifecycle_RandomSequencesKeepInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		order := newOrder(domain.OrderStatusPending, domain.FulfillmentStatusUnfulfilled)
		now := created

		var firstShipped, firstDelivered *time.Time
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.IntRange(0, 3600).Draw(t, "advance")) * time.Second)

			var upd domain.OrderUpdate
			var err error
			op := rapid.IntRange(0, 4).Draw(t, "op")
			switch op {
			case 0:
				upd, err = ApplyFieldChange(order, FieldStatus, rapid.SampledFrom(orderStatuses).Draw(t, "status"), now)
			case 1:
				upd, err = ApplyFieldChange(order, FieldFulfillmentStatus, rapid.SampledFrom(fulfillments).Draw(t, "fulfillment"), now)
			case 2:
				upd, err = AttachTracking(order, rapid.SampledFrom([]string{"TRK-A", "TRK-B", ""}).Draw(t, "tracking"), "", now)
			case 3:
				upd = ReconcilePayment(order, MapPaymentState(rapid.SampledFrom(payments).Draw(t, "payment")))
			case 4:
				upd, err = AttachTracking(order, "", "", now)
			}
			if err != nil {
				continue
			}

			next := upd.ApplyTo(order)

			if (op == 2 && upd.Tracking != nil && upd.Tracking.Number == nil) || op == 4 {
				if next.Status != order.Status || next.FulfillmentStatus != order.FulfillmentStatus {
					t.Fatalf("clearing tracking changed status: %s/%s -> %s/%s",
						order.Status, order.FulfillmentStatus, next.Status, next.FulfillmentStatus)
				}
			} else if err := CheckInvariants(next); err != nil {
				t.Fatalf("step %d (op %d) broke invariants: %v", i, op, err)
			}

			if next.FulfillmentStatus == domain.FulfillmentStatusFulfilled &&
				(next.Status != domain.OrderStatusDelivered || next.DeliveredAt == nil) {
				t.Fatalf("fulfilled order not delivered: %+v", next)
			}

			if firstShipped != nil && !next.ShippedAt.Equal(*firstShipped) {
				t.Fatalf("shipped_at moved from %v to %v", *firstShipped, *next.ShippedAt)
			}
			if firstDelivered != nil && !next.DeliveredAt.Equal(*firstDelivered) {
				t.Fatalf("delivered_at moved from %v to %v", *firstDelivered, *next.DeliveredAt)
			}
			if firstShipped == nil && next.ShippedAt != nil {
				v := *next.ShippedAt
				firstShipped = &v
			}
			if firstDelivered == nil && next.DeliveredAt != nil {
				v := *next.DeliveredAt
				firstDelivered = &v
			}

			order = next
		}
	})
}

func TestApplyFieldChange_NeverMutatesInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		order := newOrder(
			domain.OrderStatus(rapid.SampledFrom(orderStatuses).Draw(t, "start_status")),
			domain.FulfillmentStatusUnfulfilled,
		)
		before := order.Clone()

		field := rapid.SampledFrom([]string{FieldStatus, FieldFulfillmentStatus, "payment_status"}).Draw(t, "field")
		value := rapid.SampledFrom(append(append([]string{}, orderStatuses...), fulfillments...)).Draw(t, "value")
		_, _ = ApplyFieldChange(order, field, value, created.Add(time.Hour))

		if order.Status != before.Status || order.FulfillmentStatus != before.FulfillmentStatus ||
			order.ShippedAt != nil || order.DeliveredAt != nil {
			t.Fatalf("input order mutated: %+v", order)
		}
	})
}
