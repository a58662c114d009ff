package domain

import "time"

// TrackingUpdate replaces both tracking columns. A nil Number or URL writes NULL.
type TrackingUpdate struct {
	Number *string
	URL    *string
}

// OrderUpdate is the set of fields written together in one atomic update.
// A nil field is left untouched. ShippedAt and DeliveredAt are set-once:
// they are only written when the stored value is still NULL.
type OrderUpdate struct {
	Status            *OrderStatus
	FulfillmentStatus *FulfillmentStatus
	PaymentStatus     *PaymentStatus
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	Tracking          *TrackingUpdate
	InternalNotes     *string // empty string clears the notes
}

// IsEmpty reports whether the update writes nothing
func (u OrderUpdate) IsEmpty() bool {
	return u.Status == nil &&
		u.FulfillmentStatus == nil &&
		u.PaymentStatus == nil &&
		u.ShippedAt == nil &&
		u.DeliveredAt == nil &&
		u.Tracking == nil &&
		u.InternalNotes == nil
}

// Fields lists the column names the update writes, in a stable order
func (u OrderUpdate) Fields() []string {
	fields := make([]string, 0, 8)
	if u.Status != nil {
		fields = append(fields, "status")
	}
	if u.FulfillmentStatus != nil {
		fields = append(fields, "fulfillment_status")
	}
	if u.PaymentStatus != nil {
		fields = append(fields, "payment_status")
	}
	if u.ShippedAt != nil {
		fields = append(fields, "shipped_at")
	}
	if u.DeliveredAt != nil {
		fields = append(fields, "delivered_at")
	}
	if u.Tracking != nil {
		fields = append(fields, "tracking_number", "tracking_url")
	}
	if u.InternalNotes != nil {
		fields = append(fields, "internal_notes")
	}
	return fields
}

// ApplyTo returns a copy of o with the update applied, using the same
// set-once rule for timestamps that the store enforces.
func (u OrderUpdate) ApplyTo(o *Order) *Order {
	next := o.Clone()
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.FulfillmentStatus != nil {
		next.FulfillmentStatus = *u.FulfillmentStatus
	}
	if u.PaymentStatus != nil {
		next.PaymentStatus = *u.PaymentStatus
	}
	if u.ShippedAt != nil && next.ShippedAt == nil {
		next.ShippedAt = cloneTime(u.ShippedAt)
	}
	if u.DeliveredAt != nil && next.DeliveredAt == nil {
		next.DeliveredAt = cloneTime(u.DeliveredAt)
	}
	if u.Tracking != nil {
		next.TrackingNumber = cloneString(u.Tracking.Number)
		next.TrackingURL = cloneString(u.Tracking.URL)
	}
	if u.InternalNotes != nil {
		next.InternalNotes = nil
		if *u.InternalNotes != "" {
			next.InternalNotes = cloneString(u.InternalNotes)
		}
	}
	return next
}

// Diff strips every field whose value already matches o, so that writing
// the result never churns updated_at for unchanged data.
func (u OrderUpdate) Diff(o *Order) OrderUpdate {
	d := u
	if d.Status != nil && *d.Status == o.Status {
		d.Status = nil
	}
	if d.FulfillmentStatus != nil && *d.FulfillmentStatus == o.FulfillmentStatus {
		d.FulfillmentStatus = nil
	}
	if d.PaymentStatus != nil && *d.PaymentStatus == o.PaymentStatus {
		d.PaymentStatus = nil
	}
	if d.ShippedAt != nil && o.ShippedAt != nil {
		d.ShippedAt = nil
	}
	if d.DeliveredAt != nil && o.DeliveredAt != nil {
		d.DeliveredAt = nil
	}
	if d.Tracking != nil &&
		equalStrings(d.Tracking.Number, o.TrackingNumber) &&
		equalStrings(d.Tracking.URL, o.TrackingURL) {
		d.Tracking = nil
	}
	if d.InternalNotes != nil {
		var want *string
		if *d.InternalNotes != "" {
			want = d.InternalNotes
		}
		if equalStrings(want, o.InternalNotes) {
			d.InternalNotes = nil
		}
	}
	return d
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
