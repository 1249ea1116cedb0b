package services

import (
	"context"
	"sync"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

// MockOrderRepository is an in-memory OrderRepository for tests. Behavior
// can be overridden per call via the Fn fields; by default it mimics the
// real store, including rollback-on-error inside WithOrderLock.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	notes  map[int64][]domain.OrderNote

	FindByIDFn         func(ctx context.Context, id int64) (*domain.Order, error)
	UpdateFn           func(ctx context.Context, order *domain.Order) error
	WithOrderLockFn    func(ctx context.Context, id int64, fn func(order *domain.Order) error) error
	FindStalePendingFn func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[int64]*domain.Order),
		notes:  make(map[int64][]domain.OrderNote),
	}
}

// Seed stores an order directly, bypassing any behavior overrides.
func (m *MockOrderRepository) Seed(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *order
	clone.Notes = nil
	m.orders[order.ID] = &clone
}

// Notes returns the persisted notes for an order.
func (m *MockOrderRepository) Notes(orderID int64) []domain.OrderNote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.OrderNote(nil), m.notes[orderID]...)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFoundError(id)
	}
	clone := *order
	return &clone, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(order)
}

func (m *MockOrderRepository) WithOrderLock(ctx context.Context, id int64, fn func(order *domain.Order) error) error {
	if m.WithOrderLockFn != nil {
		return m.WithOrderLockFn(ctx, id, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}

	// Work on a copy so an error from fn rolls the mutation back, the
	// way a transaction would.
	clone := *stored
	clone.Notes = nil
	if err := fn(&clone); err != nil {
		return err
	}
	return m.commit(&clone)
}

func (m *MockOrderRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	if m.FindStalePendingFn != nil {
		return m.FindStalePendingFn(ctx, olderThan, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []*domain.Order
	cutoff := time.Now().Add(-olderThan)
	for _, order := range m.orders {
		if len(stale) >= limit {
			break
		}
		if (order.Status == domain.StatusPending || order.Status == domain.StatusOnHold) &&
			order.TransactionID != "" && order.UpdatedAt.Before(cutoff) {
			clone := *order
			stale = append(stale, &clone)
		}
	}
	return stale, nil
}

func (m *MockOrderRepository) commit(order *domain.Order) error {
	for _, note := range order.Notes {
		m.notes[order.ID] = append(m.notes[order.ID], note)
	}
	clone := *order
	clone.Notes = nil
	m.orders[order.ID] = &clone
	return nil
}

// MockGatewayClient is a function-field GatewayClient that counts calls.
type MockGatewayClient struct {
	mu sync.Mutex

	CreateHostedSessionFn func(ctx context.Context, req application.HostedSessionRequest) (*application.HostedSessionResponse, error)
	GetTransactionFn      func(ctx context.Context, txnID string) (*application.TransactionDetails, error)
	ReverseFn             func(ctx context.Context, txnID string, amountCents int64) (*application.ReversalResponse, error)
	VoidFn                func(ctx context.Context, txnID, reason string) (*application.ReversalResponse, error)

	HostedSessionCalls  []application.HostedSessionRequest
	GetTransactionCalls []string
	ReverseCalls        []ReverseCall
	VoidCalls           []VoidCall
}

type ReverseCall struct {
	TransactionID string
	AmountCents   int64
}

type VoidCall struct {
	TransactionID string
	Reason        string
}

func NewMockGatewayClient() *MockGatewayClient {
	return &MockGatewayClient{}
}

func (m *MockGatewayClient) CreateHostedSession(ctx context.Context, req application.HostedSessionRequest) (*application.HostedSessionResponse, error) {
	m.mu.Lock()
	m.HostedSessionCalls = append(m.HostedSessionCalls, req)
	m.mu.Unlock()
	if m.CreateHostedSessionFn != nil {
		return m.CreateHostedSessionFn(ctx, req)
	}
	return &application.HostedSessionResponse{
		SessionID:   "sess-1",
		RedirectURL: "https://processor.example/pay/sess-1",
	}, nil
}

func (m *MockGatewayClient) GetTransaction(ctx context.Context, txnID string) (*application.TransactionDetails, error) {
	m.mu.Lock()
	m.GetTransactionCalls = append(m.GetTransactionCalls, txnID)
	m.mu.Unlock()
	if m.GetTransactionFn != nil {
		return m.GetTransactionFn(ctx, txnID)
	}
	return &application.TransactionDetails{TransactionID: txnID, Status: "PENDING"}, nil
}

func (m *MockGatewayClient) Reverse(ctx context.Context, txnID string, amountCents int64) (*application.ReversalResponse, error) {
	m.mu.Lock()
	m.ReverseCalls = append(m.ReverseCalls, ReverseCall{TransactionID: txnID, AmountCents: amountCents})
	m.mu.Unlock()
	if m.ReverseFn != nil {
		return m.ReverseFn(ctx, txnID, amountCents)
	}
	return &application.ReversalResponse{TransactionID: txnID, Status: "REVERSED"}, nil
}

func (m *MockGatewayClient) Void(ctx context.Context, txnID, reason string) (*application.ReversalResponse, error) {
	m.mu.Lock()
	m.VoidCalls = append(m.VoidCalls, VoidCall{TransactionID: txnID, Reason: reason})
	m.mu.Unlock()
	if m.VoidFn != nil {
		return m.VoidFn(ctx, txnID, reason)
	}
	return &application.ReversalResponse{TransactionID: txnID, Status: "VOIDED"}, nil
}

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []application.OrderEvent

	PublishFn func(ctx context.Context, event application.OrderEvent) error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishStatusChange(ctx context.Context, event application.OrderEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, event)
	}
	return nil
}
