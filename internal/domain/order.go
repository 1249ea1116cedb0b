// Package domain encodes the merchant order aggregate and the processor
// notification value types.
package domain

import (
	"errors"
	"time"
)

// OrderStatus is the merchant-facing order status, distinct from the
// processor's transaction status vocabulary.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusOnHold     OrderStatus = "ON_HOLD"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusFailed     OrderStatus = "FAILED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// Order is the merchant's record of a purchase attempt. It is created at
// checkout submission and mutated only by the reconciliation engine or the
// direct synchronous payment result.
type Order struct {
	ID            int64
	OrderKey      string
	PaymentMethod string
	AmountCents   int64
	Currency      string
	Status        OrderStatus

	// TransactionID is the processor's transaction id, set once the
	// processor accepts the attempt. Once set, every later notification
	// must carry the same id.
	TransactionID string
	Captured      bool
	Installments  *string

	Notes []OrderNote

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderNote is an append-only audit line on an order.
type OrderNote struct {
	OrderID   int64
	Note      string
	CreatedAt time.Time
}

func NewOrder(id int64, orderKey, paymentMethod string, amount Money) (*Order, error) {
	if id <= 0 {
		return nil, errors.New("order ID is required")
	}
	if orderKey == "" {
		return nil, errors.New("order key is required")
	}
	if paymentMethod == "" {
		return nil, errors.New("payment method is required")
	}

	return &Order{
		ID:            id,
		OrderKey:      orderKey,
		PaymentMethod: paymentMethod,
		AmountCents:   amount.Amount,
		Currency:      amount.Currency,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

// AwaitingPayment reports whether the order has not yet seen a positive
// payment outcome. This is the precondition shared by every row of the
// status mapping table: only orders in this set may move forward, which is
// what makes duplicate notification delivery a no-op.
func (o *Order) AwaitingPayment() bool {
	switch o.Status {
	case StatusPending, StatusOnHold, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsPaid reports whether a positive outcome has already been applied.
func (o *Order) IsPaid() bool {
	return o.Status == StatusProcessing || o.Status == StatusCompleted
}

// AttachTransaction pins the processor transaction id to the order.
// Setting the same id again is a no-op; a different id is a consistency
// violation.
func (o *Order) AttachTransaction(txnID string) error {
	if txnID == "" {
		return NewMissingRequiredFieldError("transaction ID")
	}
	if o.TransactionID != "" && o.TransactionID != txnID {
		return NewTransactionMismatchError(o.TransactionID, txnID)
	}
	o.TransactionID = txnID
	return nil
}

// MatchesTransaction reports whether a notification's transaction id is
// consistent with the order. An order without a pinned id matches anything.
func (o *Order) MatchesTransaction(txnID string) bool {
	return o.TransactionID == "" || o.TransactionID == txnID
}

// SetStatus moves the order to the target status. Completed is terminal.
func (o *Order) SetStatus(target OrderStatus) error {
	if o.Status == StatusCompleted && target != StatusCompleted {
		return NewInvalidTransitionError(o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Complete records payment completion: pins the transaction id, marks the
// funds captured and moves the order to completed.
func (o *Order) Complete(txnID string) error {
	if err := o.AttachTransaction(txnID); err != nil {
		return err
	}
	if err := o.SetStatus(StatusCompleted); err != nil {
		return err
	}
	o.Captured = true
	return nil
}

// AddNote appends an audit note. Notes are persisted alongside the order.
func (o *Order) AddNote(note string) {
	o.Notes = append(o.Notes, OrderNote{
		OrderID:   o.ID,
		Note:      note,
		CreatedAt: time.Now(),
	})
}
