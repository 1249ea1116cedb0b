package services_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrder(t *testing.T, status domain.OrderStatus) *domain.Order {
	t.Helper()
	money, err := domain.NewMoney(1999, "USD")
	require.NoError(t, err)
	order, err := domain.NewOrder(42, "wc_order_abc123", "globalpay_hpp", money)
	require.NoError(t, err)
	order.Status = status
	return order
}

func notification(status domain.TransactionStatus, txnID string) *domain.Notification {
	return &domain.Notification{
		TransactionID: txnID,
		Status:        status,
		RawStatus:     string(status),
		OrderID:       42,
	}
}

func TestApply_Preauthorized(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	out, err := mapper.Apply(order, notification(domain.TxnPreauthorized, "TXN1"))

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.False(t, out.Captured)
	assert.Equal(t, domain.StatusProcessing, order.Status)
	assert.Equal(t, "TXN1", order.TransactionID)
	assert.Len(t, order.Notes, 1)
}

func TestApply_Captured(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	out, err := mapper.Apply(order, notification(domain.TxnCaptured, "TXN123"))

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, out.Captured)
	assert.Equal(t, domain.StatusCompleted, order.Status)
	assert.True(t, order.Captured)
	assert.Equal(t, "TXN123", order.TransactionID)
	require.Len(t, order.Notes, 1)
	assert.Contains(t, order.Notes[0].Note, "Payment completed")
}

func TestApply_CapturedTwice_SecondIsNoOp(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	out, err := mapper.Apply(order, notification(domain.TxnCaptured, "TXN123"))
	require.NoError(t, err)
	require.True(t, out.Changed)
	order.Notes = nil // first application persisted

	out, err = mapper.Apply(order, notification(domain.TxnCaptured, "TXN123"))
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.False(t, out.Noted)
	assert.Equal(t, domain.StatusCompleted, order.Status)
	assert.Empty(t, order.Notes, "redelivery must not append a second note")
}

func TestApply_NoBackwardTransition(t *testing.T) {
	for _, incoming := range []domain.TransactionStatus{
		domain.TxnPreauthorized,
		domain.TxnPending,
		domain.TxnDeclined,
	} {
		t.Run(string(incoming), func(t *testing.T) {
			mapper := services.NewStatusMapper(discardLogger())
			order := testOrder(t, domain.StatusCompleted)
			order.TransactionID = "TXN123"

			out, err := mapper.Apply(order, notification(incoming, "TXN123"))

			require.NoError(t, err)
			assert.False(t, out.Changed)
			assert.Equal(t, domain.StatusCompleted, order.Status)
			assert.Empty(t, order.Notes)
		})
	}
}

func TestApply_ProcessingBlocksRedelivery(t *testing.T) {
	// A preauthorized order is already in a positive state; another
	// PREAUTHORIZED (or even CAPTURED) notification must not re-fire.
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusProcessing)
	order.TransactionID = "TXN1"

	out, err := mapper.Apply(order, notification(domain.TxnPreauthorized, "TXN1"))
	require.NoError(t, err)
	assert.False(t, out.Changed)

	out, err = mapper.Apply(order, notification(domain.TxnCaptured, "TXN1"))
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, domain.StatusProcessing, order.Status)
}

func TestApply_Pending(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusOnHold)

	out, err := mapper.Apply(order, notification(domain.TxnPending, "TXN1"))

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Len(t, order.Notes, 1)
}

func TestApply_PendingIdempotent(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	out, err := mapper.Apply(order, notification(domain.TxnPending, "TXN1"))

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Empty(t, order.Notes)
}

func TestApply_DeclineFamily(t *testing.T) {
	for _, incoming := range []domain.TransactionStatus{
		domain.TxnDeclined,
		domain.TxnCancelled,
		domain.TxnFailed,
	} {
		t.Run(string(incoming), func(t *testing.T) {
			mapper := services.NewStatusMapper(discardLogger())
			order := testOrder(t, domain.StatusPending)

			msg := "Insufficient funds"
			n := notification(incoming, "TXN1")
			n.Message = &msg

			out, err := mapper.Apply(order, n)

			require.NoError(t, err)
			assert.True(t, out.Changed)
			assert.Equal(t, domain.StatusCancelled, order.Status)
			require.Len(t, order.Notes, 1)
			assert.Contains(t, order.Notes[0].Note, "Insufficient funds")
		})
	}
}

func TestApply_UnknownStatus(t *testing.T) {
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	n := &domain.Notification{
		TransactionID: "TXN1",
		Status:        domain.TxnUnknown,
		RawStatus:     "SOMETHING_NEW",
		OrderID:       42,
	}

	out, err := mapper.Apply(order, n)

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.True(t, out.Noted)
	assert.Equal(t, domain.StatusPending, order.Status, "unknown status leaves order unchanged")
	require.Len(t, order.Notes, 1)
	assert.Contains(t, order.Notes[0].Note, "SOMETHING_NEW")
}

func TestApply_InitiatedIsUnhandled(t *testing.T) {
	// INITIATED is a known processor status but deliberately has no
	// mapping row; it is recorded, not acted on.
	mapper := services.NewStatusMapper(discardLogger())
	order := testOrder(t, domain.StatusPending)

	out, err := mapper.Apply(order, notification(domain.TxnInitiated, "TXN1"))

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.True(t, out.Noted)
	assert.Equal(t, domain.StatusPending, order.Status)
}
