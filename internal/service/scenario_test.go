package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vinylhouse/labelapi/internal/domain"
)

// OrderJourneySuite walks one order from checkout to delivery
type OrderJourneySuite struct {
	suite.Suite
	f     *fixture
	ctx   context.Context
	order *domain.Order
}

func TestOrderJourneySuite(t *testing.T) {
	suite.Run(t, new(OrderJourneySuite))
}

func (s *OrderJourneySuite) SetupTest() {
	s.f = newFixture(s.T())
	s.ctx = context.Background()
	s.order = s.f.pendingOrder("VH-5001", "cs_5001")
}

func (s *OrderJourneySuite) TestCheckoutToDelivery() {
	s.Equal(domain.OrderStatusPending, s.order.Status)
	s.Equal(domain.FulfillmentStatusUnfulfilled, s.order.FulfillmentStatus)
	s.Equal(domain.PaymentStatusPending, s.order.PaymentStatus)

	// processor reports paid
	s.f.authority.set("cs_5001", "paid")
	res, err := s.f.recon.Reconcile(s.ctx, s.order.ID, "")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusProcessing, res.Order.Status)
	s.Equal(domain.PaymentStatusPaid, res.Order.PaymentStatus)

	// courier picks it up
	s.f.clock.Advance(2 * time.Hour)
	shipped, err := s.f.orders.AttachTracking(s.ctx, s.order.ID, "TRK123", "")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusShipped, shipped.Status)
	s.Equal(domain.FulfillmentStatusPartial, shipped.FulfillmentStatus)
	s.Require().NotNil(shipped.ShippedAt)
	shippedAt := *shipped.ShippedAt
	s.Equal(s.f.clock.Now(), shippedAt)

	// warehouse confirms delivery
	s.f.clock.Advance(48 * time.Hour)
	delivered, err := s.f.orders.ApplyFieldChange(s.ctx, s.order.ID, "fulfillment_status", "fulfilled")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDelivered, delivered.Status)
	s.Equal(domain.FulfillmentStatusFulfilled, delivered.FulfillmentStatus)
	s.Require().NotNil(delivered.DeliveredAt)
	s.Equal(s.f.clock.Now(), *delivered.DeliveredAt)
	s.Equal(shippedAt, *delivered.ShippedAt)
	s.Equal(domain.PaymentStatusPaid, delivered.PaymentStatus)

	detail, err := s.f.orders.GetOrder(s.ctx, "VH-5001")
	s.Require().NoError(err)
	s.Equal(delivered, detail.Order)
	s.Len(detail.Events, 3)
}

func (s *OrderJourneySuite) TestRetrackingKeepsFirstShipment() {
	first, err := s.f.orders.AttachTracking(s.ctx, s.order.ID, "TRK-A", "")
	s.Require().NoError(err)

	s.f.clock.Advance(24 * time.Hour)
	second, err := s.f.orders.AttachTracking(s.ctx, s.order.ID, "TRK-B", "https://track.example/TRK-B")
	s.Require().NoError(err)

	s.Equal(*first.ShippedAt, *second.ShippedAt)
	s.Equal("TRK-B", *second.TrackingNumber)
}

func (s *OrderJourneySuite) TestProcessorOutageDuringJourney() {
	s.f.authority.set("cs_5001", "paid")
	_, err := s.f.orders.AttachTracking(s.ctx, s.order.ID, "TRK-A", "")
	s.Require().NoError(err)

	before, err := s.f.store.Repositories().Order.GetByID(s.ctx, s.order.ID)
	s.Require().NoError(err)

	s.f.authority.err = context.DeadlineExceeded
	_, err = s.f.recon.Reconcile(s.ctx, s.order.ID, "")
	s.Require().Error(err)

	after, err := s.f.store.Repositories().Order.GetByID(s.ctx, s.order.ID)
	s.Require().NoError(err)
	s.Equal(before, after)
}
