package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/commercekit/globalpay-reconciler/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeper(t *testing.T, orders *services.MockOrderRepository, gateway *services.MockGatewayClient) *worker.Sweeper {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := services.NewEngine(
		orders,
		gateway,
		services.NewStatusMapper(logger),
		services.NewMockEventPublisher(),
		"sandbox-app-key",
		logger,
	)
	return worker.NewSweeper(orders, gateway, engine, time.Minute, time.Hour, 50, logger)
}

func staleOrder(t *testing.T, id int64, txnID string) *domain.Order {
	t.Helper()
	money, err := domain.NewMoney(1999, "USD")
	require.NoError(t, err)
	order, err := domain.NewOrder(id, "wc_order_abc123", "globalpay_hpp", money)
	require.NoError(t, err)
	order.TransactionID = txnID
	order.UpdatedAt = time.Now().Add(-2 * time.Hour)
	return order
}

func TestRunOnce_ReconcilesStaleOrder(t *testing.T) {
	orders := services.NewMockOrderRepository()
	gateway := services.NewMockGatewayClient()
	orders.Seed(staleOrder(t, 42, "TXN42"))

	gateway.GetTransactionFn = func(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
		result := "00"
		return &application.TransactionDetails{
			TransactionID: txnID,
			Status:        "CAPTURED",
			Reference:     "MyStore Order #42",
			ResultCode:    &result,
		}, nil
	}

	newSweeper(t, orders, gateway).RunOnce(context.Background())

	assert.Equal(t, []string{"TXN42"}, gateway.GetTransactionCalls)

	stored, err := orders.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestRunOnce_StillPendingAtProcessor(t *testing.T) {
	orders := services.NewMockOrderRepository()
	gateway := services.NewMockGatewayClient()
	orders.Seed(staleOrder(t, 42, "TXN42"))

	// Default mock answer is PENDING; the order must not move.
	newSweeper(t, orders, gateway).RunOnce(context.Background())

	stored, err := orders.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestRunOnce_RequeryFailureSkipsOrder(t *testing.T) {
	orders := services.NewMockOrderRepository()
	gateway := services.NewMockGatewayClient()
	orders.Seed(staleOrder(t, 42, "TXN42"))
	orders.Seed(staleOrder(t, 43, "TXN43"))

	gateway.GetTransactionFn = func(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
		if txnID == "TXN42" {
			return nil, errors.New("connection refused")
		}
		result := "00"
		return &application.TransactionDetails{
			TransactionID: txnID,
			Status:        "CAPTURED",
			Reference:     "MyStore Order #43",
			ResultCode:    &result,
		}, nil
	}

	newSweeper(t, orders, gateway).RunOnce(context.Background())

	// One failure does not abort the batch.
	assert.Len(t, gateway.GetTransactionCalls, 2)

	stuck, err := orders.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stuck.Status)

	swept, err := orders.FindByID(context.Background(), 43)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, swept.Status)
}

func TestRunOnce_NothingStale(t *testing.T) {
	orders := services.NewMockOrderRepository()
	gateway := services.NewMockGatewayClient()

	// A fresh pending order is not stale.
	money, err := domain.NewMoney(1999, "USD")
	require.NoError(t, err)
	order, err := domain.NewOrder(42, "wc_order_abc123", "globalpay_hpp", money)
	require.NoError(t, err)
	order.TransactionID = "TXN42"
	order.UpdatedAt = time.Now()
	orders.Seed(order)

	newSweeper(t, orders, gateway).RunOnce(context.Background())

	assert.Empty(t, gateway.GetTransactionCalls)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	orders := services.NewMockOrderRepository()
	gateway := services.NewMockGatewayClient()
	sweeper := newSweeper(t, orders, gateway)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
