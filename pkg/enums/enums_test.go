package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusDraft.CanTransitionTo(OrderStatusPendingPayment))
	assert.True(t, OrderStatusDraft.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusDraft.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusDraft))
	assert.True(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusDraft))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusDraft))
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.False(t, OrderStatusDraft.IsTerminal())
}

func TestOrderItemTypeChildren(t *testing.T) {
	assert.True(t, OrderItemTypePerUnitFees.IsChild())
	assert.True(t, OrderItemTypeDiscount.IsChild())
	assert.False(t, OrderItemTypeTickets.IsChild())
	assert.False(t, OrderItemTypeEventFees.IsChild())
	assert.Panics(t, func() { OrderItemType("Bogus").IsChild() })
}

func TestParseRoundTrips(t *testing.T) {
	status, err := ParseTicketInstanceStatus("Reserved")
	require.NoError(t, err)
	assert.Equal(t, TicketInstanceStatusReserved, status)

	_, err = ParsePaymentStatus("Settled")
	require.Error(t, err)

	kind, err := ParseOrderItemType("EventFees")
	require.NoError(t, err)
	assert.True(t, kind.IsValid())
	assert.False(t, HoldType("Other").IsValid())
}
