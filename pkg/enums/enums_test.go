package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusRankAndAdvance(t *testing.T) {
	assert.Equal(t, 0, OrderStatusPending.Rank())
	assert.Equal(t, 4, OrderStatusDelivered.Rank())
	assert.Equal(t, -1, OrderStatusCancelled.Rank())

	assert.True(t, OrderStatusConfirmed.CanAdvanceTo(OrderStatusProcessing))
	assert.True(t, OrderStatusConfirmed.CanAdvanceTo(OrderStatusShipped))
	assert.False(t, OrderStatusShipped.CanAdvanceTo(OrderStatusProcessing))
	assert.False(t, OrderStatusCancelled.CanAdvanceTo(OrderStatusConfirmed))
	assert.False(t, OrderStatusPending.CanAdvanceTo(OrderStatusCancelled))
}

func TestOrderStatusCancellable(t *testing.T) {
	cancellable := map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusConfirmed:  true,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
	}
	for status, want := range cancellable {
		assert.Equal(t, want, status.IsCancellable(), status)
	}
}

func TestVendorTransitions(t *testing.T) {
	assert.True(t, VendorStatusPending.CanTransitionTo(VendorStatusActive))
	assert.True(t, VendorStatusPending.CanTransitionTo(VendorStatusRejected))
	assert.True(t, VendorStatusActive.CanTransitionTo(VendorStatusSuspended))
	assert.True(t, VendorStatusSuspended.CanTransitionTo(VendorStatusActive))
	assert.False(t, VendorStatusActive.CanTransitionTo(VendorStatusPending))
	assert.False(t, VendorStatusRejected.CanTransitionTo(VendorStatusPending))
}

func TestParseRejectsUnknownValues(t *testing.T) {
	status, err := ParseOrderStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
	_, err = ParsePaymentMethod("CHEQUE")
	assert.Error(t, err)
	_, err = ParseProductStatus("ARCHIVED")
	assert.Error(t, err)

	role, err := ParseUserRole("ADMIN")
	require.NoError(t, err)
	assert.True(t, role.IsValid())
}
