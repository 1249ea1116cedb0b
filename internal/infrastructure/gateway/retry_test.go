package gateway_test

import (
	"context"
	"testing"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/config"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryClient(inner application.GatewayClient, maxRetries int32) application.GatewayClient {
	return gateway.NewRetryGatewayClient(inner, config.GatewayConfig{
		RetryBase: 0,
		RetryMax:  maxRetries,
	})
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	inner := services.NewMockGatewayClient()
	attempts := 0
	inner.GetTransactionFn = func(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
		attempts++
		if attempts < 3 {
			return nil, &gateway.GatewayError{Code: "UNAVAILABLE", Message: "try later", StatusCode: 503}
		}
		return &application.TransactionDetails{TransactionID: txnID, Status: "CAPTURED"}, nil
	}

	details, err := retryClient(inner, 3).GetTransaction(context.Background(), "TXN1")

	require.NoError(t, err)
	assert.Equal(t, "CAPTURED", details.Status)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	inner := services.NewMockGatewayClient()
	attempts := 0
	inner.GetTransactionFn = func(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
		attempts++
		return nil, &gateway.GatewayError{Code: "UNAVAILABLE", Message: "try later", StatusCode: 503}
	}

	_, err := retryClient(inner, 3).GetTransaction(context.Background(), "TXN1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	inner := services.NewMockGatewayClient()
	attempts := 0
	inner.GetTransactionFn = func(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
		attempts++
		return nil, &gateway.GatewayError{Code: "NOT_FOUND", Message: "unknown transaction", StatusCode: 404}
	}

	_, err := retryClient(inner, 3).GetTransaction(context.Background(), "TXN1")

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a 4xx answer must not be retried")
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	inner := services.NewMockGatewayClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryClient(inner, 3).GetTransaction(ctx, "TXN1")

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, inner.GetTransactionCalls)
}

func TestRetry_WrapsAllOperations(t *testing.T) {
	inner := services.NewMockGatewayClient()
	client := retryClient(inner, 1)
	ctx := context.Background()

	_, err := client.CreateHostedSession(ctx, application.HostedSessionRequest{OrderID: 1})
	require.NoError(t, err)
	_, err = client.Reverse(ctx, "TXN1", 1999)
	require.NoError(t, err)
	_, err = client.Void(ctx, "TXN1", "POST_AUTH_USER_DECLINE")
	require.NoError(t, err)

	assert.Len(t, inner.HostedSessionCalls, 1)
	assert.Len(t, inner.ReverseCalls, 1)
	assert.Len(t, inner.VoidCalls, 1)
}
