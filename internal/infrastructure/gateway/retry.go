package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/config"
)

// RetryGatewayClient wraps the processor client with jittered exponential
// backoff. Session creation, re-query and void are safe to retry; reversal
// requests carry the transaction id so a redelivered reversal is idempotent
// on the processor side.
type RetryGatewayClient struct {
	inner      application.GatewayClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.GatewayClient, cfg config.GatewayConfig) application.GatewayClient {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.RetryBase) * time.Second,
		maxRetries: int(cfg.RetryMax),
	}
}

func (r *RetryGatewayClient) CreateHostedSession(ctx context.Context, req application.HostedSessionRequest) (*application.HostedSessionResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.HostedSessionResponse, error) {
			return r.inner.CreateHostedSession(ctx, req)
		},
	)
}

func (r *RetryGatewayClient) GetTransaction(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.TransactionDetails, error) {
			return r.inner.GetTransaction(ctx, txnID)
		},
	)
}

func (r *RetryGatewayClient) Reverse(ctx context.Context, txnID string, amountCents int64) (*application.ReversalResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.ReversalResponse, error) {
			return r.inner.Reverse(ctx, txnID, amountCents)
		},
	)
}

func (r *RetryGatewayClient) Void(ctx context.Context, txnID, reason string) (*application.ReversalResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.ReversalResponse, error) {
			return r.inner.Void(ctx, txnID, reason)
		},
	)
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
