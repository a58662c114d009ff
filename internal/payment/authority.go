// Package payment talks to the external payment authority that owns the
// truth about checkout sessions.
package payment

import (
	"context"
	"encoding/json"
)

// Session is the authority's view of one checkout session
type Session struct {
	ID              string
	PaymentStatus   string // raw remote state, mapped by lifecycle.MapPaymentState
	PaymentIntentID string
	Raw             json.RawMessage
}

// Authority looks up checkout sessions. Errors are *errors.ErrExternal.
type Authority interface {
	LookupSession(ctx context.Context, sessionID string) (*Session, error)
}
