// Package lifecycle computes the complete set of order fields that must be
// written together when an operator or the payment processor changes one of
// them. Everything here is pure: no storage, no network, time is passed in.
package lifecycle

import (
	"strings"
	"time"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// Fields accepted by ApplyFieldChange
const (
	FieldStatus            = "status"
	FieldFulfillmentStatus = "fulfillment_status"
)

// ApplyFieldChange returns the write-set for an explicit change of status or
// fulfillment_status, including cascaded fields:
//
//	fulfillment_status=fulfilled -> status=delivered, delivered_at (if unset)
//	status=shipped               -> fulfillment_status=partial, shipped_at (if unset)
//	status=delivered             -> fulfillment_status=fulfilled, delivered_at (if unset)
//
// Anything else is applied as-is. The resulting order must satisfy the order
// invariants, otherwise nothing is returned.
func ApplyFieldChange(order *domain.Order, field, value string, now time.Time) (domain.OrderUpdate, error) {
	if order == nil {
		return domain.OrderUpdate{}, &errors.ErrNotFound{Resource: "order", ID: "nil"}
	}

	var upd domain.OrderUpdate
	switch strings.TrimSpace(field) {
	case FieldFulfillmentStatus:
		fs, ok := domain.ParseFulfillmentStatus(value)
		if !ok {
			return domain.OrderUpdate{}, errors.NewValidation(FieldFulfillmentStatus, "unknown fulfillment status %q", value)
		}
		upd.FulfillmentStatus = &fs
		if fs == domain.FulfillmentStatusFulfilled {
			upd.Status = orderStatusPtr(domain.OrderStatusDelivered)
			if order.DeliveredAt == nil {
				upd.DeliveredAt = timePtr(now)
			}
		}
	case FieldStatus:
		s, ok := domain.ParseOrderStatus(value)
		if !ok {
			return domain.OrderUpdate{}, errors.NewValidation(FieldStatus, "unknown order status %q", value)
		}
		upd.Status = &s
		switch s {
		case domain.OrderStatusShipped:
			upd.FulfillmentStatus = fulfillmentPtr(domain.FulfillmentStatusPartial)
			if order.ShippedAt == nil {
				upd.ShippedAt = timePtr(now)
			}
		case domain.OrderStatusDelivered:
			upd.FulfillmentStatus = fulfillmentPtr(domain.FulfillmentStatusFulfilled)
			if order.DeliveredAt == nil {
				upd.DeliveredAt = timePtr(now)
			}
		}
	default:
		return domain.OrderUpdate{}, errors.NewValidation("field", "field %q cannot be changed directly", field)
	}

	if err := CheckInvariants(upd.ApplyTo(order)); err != nil {
		return domain.OrderUpdate{}, err
	}
	return upd, nil
}

// UpdateInternalNotes returns the write-set for an operator note edit. No cascade.
func UpdateInternalNotes(order *domain.Order, notes string) (domain.OrderUpdate, error) {
	if order == nil {
		return domain.OrderUpdate{}, &errors.ErrNotFound{Resource: "order", ID: "nil"}
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return domain.OrderUpdate{}, errors.NewValidation("internal_notes", "internal notes exceed %d characters", maxNotesLength)
	}
	return domain.OrderUpdate{InternalNotes: &notes}, nil
}

const maxNotesLength = 4000

func orderStatusPtr(s domain.OrderStatus) *domain.OrderStatus { return &s }

func fulfillmentPtr(s domain.FulfillmentStatus) *domain.FulfillmentStatus { return &s }

func timePtr(t time.Time) *time.Time { return &t }
