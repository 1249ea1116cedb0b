package domain_test

import (
	"testing"

	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	money, err := domain.NewMoney(1999, "USD")
	require.NoError(t, err)
	order, err := domain.NewOrder(42, "wc_order_abc123", "globalpay_hpp", money)
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.AwaitingPayment())
	assert.False(t, order.IsPaid())
	assert.Empty(t, order.TransactionID)
}

func TestNewOrder_Validation(t *testing.T) {
	money, _ := domain.NewMoney(100, "USD")

	_, err := domain.NewOrder(0, "key", "method", money)
	assert.Error(t, err)

	_, err = domain.NewOrder(1, "", "method", money)
	assert.Error(t, err)

	_, err = domain.NewOrder(1, "key", "", money)
	assert.Error(t, err)
}

func TestAttachTransaction_Pinning(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.AttachTransaction("TXN1"))
	assert.Equal(t, "TXN1", order.TransactionID)

	// Same id again is a no-op.
	require.NoError(t, order.AttachTransaction("TXN1"))

	// A different id is a consistency violation.
	err := order.AttachTransaction("TXN2")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTransactionMismatch))
	assert.Equal(t, "TXN1", order.TransactionID)
}

func TestMatchesTransaction(t *testing.T) {
	order := newTestOrder(t)

	assert.True(t, order.MatchesTransaction("anything"), "unpinned order matches any id")

	require.NoError(t, order.AttachTransaction("TXN1"))
	assert.True(t, order.MatchesTransaction("TXN1"))
	assert.False(t, order.MatchesTransaction("TXN2"))
}

func TestAwaitingPayment(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   bool
	}{
		{domain.StatusPending, true},
		{domain.StatusOnHold, true},
		{domain.StatusCancelled, true},
		{domain.StatusFailed, true},
		{domain.StatusProcessing, false},
		{domain.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := newTestOrder(t)
			order.Status = tt.status
			assert.Equal(t, tt.want, order.AwaitingPayment())
		})
	}
}

func TestComplete(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.Complete("TXN123"))

	assert.Equal(t, domain.StatusCompleted, order.Status)
	assert.True(t, order.Captured)
	assert.Equal(t, "TXN123", order.TransactionID)
}

func TestSetStatus_CompletedIsTerminal(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.Complete("TXN123"))

	err := order.SetStatus(domain.StatusPending)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))
	assert.Equal(t, domain.StatusCompleted, order.Status)
}

func TestAddNote(t *testing.T) {
	order := newTestOrder(t)

	order.AddNote("first")
	order.AddNote("second")

	require.Len(t, order.Notes, 2)
	assert.Equal(t, order.ID, order.Notes[0].OrderID)
	assert.Equal(t, "first", order.Notes[0].Note)
}
