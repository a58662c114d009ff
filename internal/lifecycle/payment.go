package lifecycle

import (
	"strings"

	"github.com/vinylhouse/labelapi/internal/domain"
)

// MapPaymentState maps a processor payment state onto the local enum.
// Known values map to themselves; unknown values pass through verbatim
// because the processor's vocabulary may grow.
func MapPaymentState(remote string) domain.PaymentStatus {
	trimmed := strings.TrimSpace(remote)
	if ps := domain.PaymentStatus(strings.ToLower(trimmed)); ps.IsKnown() {
		return ps
	}
	return domain.PaymentStatus(trimmed)
}

// ReconcilePayment merges the processor's payment status into the order.
// The only cascade is paid on a pending order, which moves it to processing.
// The result is already diffed against the order: an empty update means the
// local copy is current.
//
// TODO: failed/refunded reported after shipment has no cascade until the
// product owners decide what that should do to status and fulfillment.
func ReconcilePayment(order *domain.Order, remote domain.PaymentStatus) domain.OrderUpdate {
	upd := domain.OrderUpdate{PaymentStatus: &remote}
	if remote == domain.PaymentStatusPaid && order.Status == domain.OrderStatusPending {
		upd.Status = orderStatusPtr(domain.OrderStatusProcessing)
	}
	return upd.Diff(order)
}
