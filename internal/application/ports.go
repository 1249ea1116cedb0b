package application

import (
	"context"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

// OrderRepository is the port for order persistence.
type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error

	// WithOrderLock loads the order under a per-order mutual-exclusion
	// scope, runs fn against it, and persists the mutated aggregate
	// (including appended notes) when fn returns nil. Any error from fn
	// rolls the mutation back. This is what keeps two overlapping
	// notifications for the same order from interleaving their
	// read-modify-write.
	WithOrderLock(ctx context.Context, id int64, fn func(order *domain.Order) error) error

	// FindStalePending returns orders that have been awaiting payment
	// longer than olderThan and already carry a transaction id, so the
	// sweeper can re-query the processor for them.
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)
}

// GatewayClient is the port for the external payment processor.
type GatewayClient interface {
	CreateHostedSession(ctx context.Context, req HostedSessionRequest) (*HostedSessionResponse, error)
	GetTransaction(ctx context.Context, txnID string) (*TransactionDetails, error)
	Reverse(ctx context.Context, txnID string, amountCents int64) (*ReversalResponse, error)
	Void(ctx context.Context, txnID, reason string) (*ReversalResponse, error)
}

// EventPublisher emits an event for every visible order status change.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, event OrderEvent) error
}

// OrderEvent is the payload published on a status transition.
type OrderEvent struct {
	OrderID       int64              `json:"order_id"`
	Status        domain.OrderStatus `json:"status"`
	TransactionID string             `json:"transaction_id,omitempty"`
	AmountCents   int64              `json:"amount_cents"`
	Currency      string             `json:"currency"`
	OccurredAt    time.Time          `json:"occurred_at"`
}
