package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/lifecycle"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/payment"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const defaultPaymentTimeout = 10 * time.Second

// ReconcileResult reports what a reconciliation did. Order is always the
// stored row, Changed is false when the local copy was already current.
type ReconcileResult struct {
	Order       *domain.Order
	Changed     bool
	Update      domain.OrderUpdate
	RemoteState string
}

// Reconciler pulls the payment authority's view of a checkout session into the order
type Reconciler struct {
	repos     *repository.Repositories
	authority payment.Authority
	timeout   time.Duration
	clock     lifecycle.Clock
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewReconciler creates a payment reconciler. timeout bounds each authority lookup.
func NewReconciler(repos *repository.Repositories, authority payment.Authority, timeout time.Duration, clock lifecycle.Clock, collector *metrics.Collector, logger *zap.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &Reconciler{
		repos:     repos,
		authority: authority,
		timeout:   timeout,
		clock:     clock,
		metrics:   collector,
		logger:    logger,
	}
}

// Reconcile looks up sessionID (or the session stored on the order when empty)
// and writes the resulting payment status. The order is not touched when the
// lookup fails.
func (r *Reconciler) Reconcile(ctx context.Context, orderID int64, sessionID string) (*ReconcileResult, error) {
	order, err := r.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" && order.PaymentSessionID != nil {
		sid = strings.TrimSpace(*order.PaymentSessionID)
	}
	if sid == "" {
		r.metrics.RecordReconcile("rejected")
		return nil, errors.NewValidation("session_id", "order %s has no payment session to reconcile", order.OrderNumber)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	session, err := r.authority.LookupSession(lookupCtx, sid)
	cancel()
	if err != nil {
		r.metrics.RecordReconcile("error")
		err = asExternal(err)
		r.logger.Warn("Payment reconciliation failed",
			zap.Int64("order_id", orderID),
			zap.String("session_id", sid),
			zap.Bool("retryable", errors.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	remote := lifecycle.MapPaymentState(session.PaymentStatus)
	if !remote.IsKnown() {
		r.logger.Warn("Unknown payment state stored verbatim",
			zap.Int64("order_id", orderID),
			zap.String("session_id", sid),
			zap.String("payment_status", string(remote)),
		)
	}

	// The lookup can take seconds; compute against the row as it is now.
	for attempt := 1; ; attempt++ {
		order, err = r.repos.Order.GetByID(ctx, orderID)
		if err != nil {
			r.metrics.RecordReconcile("error")
			return nil, err
		}

		upd := lifecycle.ReconcilePayment(order, remote)
		result := &ReconcileResult{Order: order, Update: upd, RemoteState: session.PaymentStatus}
		if upd.IsEmpty() {
			r.metrics.RecordReconcile("unchanged")
			r.logger.Debug("Payment status already current",
				zap.Int64("order_id", orderID),
				zap.String("payment_status", string(remote)),
			)
			return result, nil
		}

		updated, err := r.repos.Order.ApplyUpdate(ctx, order.ID, order.Version, upd, r.clock.Now())
		if errors.IsConflict(err) && attempt < maxWriteAttempts {
			r.logger.Debug("Order changed during reconciliation, recomputing",
				zap.Int64("order_id", orderID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			r.metrics.RecordReconcile("error")
			r.logger.Error("Failed to persist reconciled payment status", zap.Int64("order_id", orderID), zap.Error(err))
			return nil, err
		}

		r.metrics.RecordReconcile("changed")
		r.logger.Info("Payment status reconciled",
			zap.Int64("order_id", updated.ID),
			zap.String("order_number", updated.OrderNumber),
			zap.String("session_id", sid),
			zap.String("payment_status", string(updated.PaymentStatus)),
			zap.String("status", string(updated.Status)),
		)
		recordEvent(ctx, r.repos.OrderEvent, r.logger, updated.ID, domain.EventPaymentReconciled, map[string]interface{}{
			"session_id":   sid,
			"remote_state": session.PaymentStatus,
			"fields":       upd.Fields(),
		})

		result.Order = updated
		result.Changed = true
		return result, nil
	}
}

// asExternal classifies errors from an Authority that is not the HTTP client.
// Unclassified failures are treated as transient.
func asExternal(err error) error {
	var ext *errors.ErrExternal
	if stderrors.As(err, &ext) {
		return err
	}
	return &errors.ErrExternal{Service: "payment", Retryable: true, Err: err}
}
