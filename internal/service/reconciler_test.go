package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

func TestReconciler_PaidAdvancesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3001", "cs_3001")
	f.authority.set("cs_3001", "paid")

	res, err := f.recon.Reconcile(ctx, o.ID, "")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusProcessing, res.Order.Status)
	assert.Equal(t, []string{"status", "payment_status"}, res.Update.Fields())

	events, err := f.store.Repositories().OrderEvent.GetByOrderID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPaymentReconciled, events[0].EventType)
	assert.Equal(t, "cs_3001", events[0].EventData["session_id"])
}

func TestReconciler_SameStateIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3002", "cs_3002")
	f.authority.set("cs_3002", "pending")

	f.clock.Advance(time.Hour)
	res, err := f.recon.Reconcile(ctx, o.ID, "")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.True(t, res.Update.IsEmpty())
	assert.Equal(t, o.UpdatedAt, res.Order.UpdatedAt)
}

func TestReconciler_PaidOnShippedKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3003", "cs_3003")
	_, err := f.orders.AttachTracking(ctx, o.ID, "TRK", "")
	require.NoError(t, err)
	f.authority.set("cs_3003", "paid")

	res, err := f.recon.Reconcile(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, res.Order.Status)
	assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
}

func TestReconciler_ExplicitSessionWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3004", "cs_stale")
	f.authority.set("cs_stale", "failed")
	f.authority.set("cs_fresh", "paid")

	res, err := f.recon.Reconcile(ctx, o.ID, " cs_fresh ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
}

func TestReconciler_UnknownStateStoredVerbatim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3005", "cs_3005")
	f.authority.set("cs_3005", "no_payment_required")

	res, err := f.recon.Reconcile(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatus("no_payment_required"), res.Order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)
}

func TestReconciler_NoSession(t *testing.T) {
	f := newFixture(t)
	o := f.pendingOrder("VH-3006", "")

	_, err := f.recon.Reconcile(context.Background(), o.ID, "  ")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, f.authority.callCount(), "no call is made without a session")
}

func TestReconciler_NetworkFailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.pendingOrder("VH-3007", "cs_3007")
	f.authority.err = &errors.ErrExternal{Service: "payment", Retryable: true, Err: context.DeadlineExceeded}

	_, err := f.recon.Reconcile(ctx, o.ID, "")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))

	stored, err := f.store.Repositories().Order.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, stored)
}

func TestReconciler_PlainErrorsAreRetryable(t *testing.T) {
	f := newFixture(t)
	o := f.pendingOrder("VH-3008", "cs_unknown")

	_, err := f.recon.Reconcile(context.Background(), o.ID, "")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestReconciler_PermanentFailure(t *testing.T) {
	f := newFixture(t)
	o := f.pendingOrder("VH-3009", "cs_3009")
	f.authority.err = &errors.ErrExternal{Service: "payment", Retryable: false}

	_, err := f.recon.Reconcile(context.Background(), o.ID, "")
	require.Error(t, err)
	assert.False(t, errors.IsRetryable(err))
}

func TestReconciler_OrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.recon.Reconcile(context.Background(), 404, "cs_x")
	assert.True(t, errors.IsNotFound(err))
	assert.Zero(t, f.authority.callCount())
}
