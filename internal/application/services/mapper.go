package services

import (
	"fmt"
	"log/slog"

	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

// Outcome summarizes what applying a notification did to an order.
type Outcome struct {
	// Changed is true when the order status moved.
	Changed bool
	// Noted is true when a note was appended even though the status did
	// not move (unknown statuses are recorded, never fatal).
	Noted    bool
	Captured bool
	Status   domain.OrderStatus
}

// StatusMapper translates the processor's transaction status vocabulary into
// order status transitions. It is a pure decision table; every branch is
// guarded by the order's current status, which is what makes redelivered
// notifications no-ops instead of double side effects.
type StatusMapper struct {
	logger *slog.Logger
}

func NewStatusMapper(logger *slog.Logger) *StatusMapper {
	return &StatusMapper{logger: logger}
}

// Apply mutates order according to the notification and reports the outcome.
// The transaction-id pinning guard is the caller's responsibility; Apply
// assumes the notification already passed it.
func (m *StatusMapper) Apply(order *domain.Order, n *domain.Notification) (Outcome, error) {
	switch n.Status {
	case domain.TxnPreauthorized:
		if !order.AwaitingPayment() {
			return m.alreadyPaid(order, n), nil
		}
		if err := order.AttachTransaction(n.TransactionID); err != nil {
			return Outcome{}, err
		}
		if err := order.SetStatus(domain.StatusProcessing); err != nil {
			return Outcome{}, err
		}
		order.AddNote(fmt.Sprintf("Payment preauthorized by processor (transaction %s).", n.TransactionID))
		return Outcome{Changed: true, Status: order.Status}, nil

	case domain.TxnCaptured:
		if !order.AwaitingPayment() {
			return m.alreadyPaid(order, n), nil
		}
		if err := order.Complete(n.TransactionID); err != nil {
			return Outcome{}, err
		}
		order.AddNote(fmt.Sprintf("Payment completed (transaction %s).", n.TransactionID))
		return Outcome{Changed: true, Captured: true, Status: order.Status}, nil

	case domain.TxnPending:
		if !order.AwaitingPayment() {
			return m.alreadyPaid(order, n), nil
		}
		if order.Status == domain.StatusPending {
			return Outcome{Status: order.Status}, nil
		}
		if err := order.SetStatus(domain.StatusPending); err != nil {
			return Outcome{}, err
		}
		order.AddNote(fmt.Sprintf("Payment pending at processor (transaction %s).", n.TransactionID))
		return Outcome{Changed: true, Status: order.Status}, nil

	case domain.TxnDeclined, domain.TxnCancelled, domain.TxnFailed:
		if !order.AwaitingPayment() {
			return m.alreadyPaid(order, n), nil
		}
		if order.Status == domain.StatusCancelled {
			return Outcome{Status: order.Status}, nil
		}
		if err := order.SetStatus(domain.StatusCancelled); err != nil {
			return Outcome{}, err
		}
		order.AddNote(declineNote(n))
		return Outcome{Changed: true, Status: order.Status}, nil

	default:
		m.logger.Warn("unhandled processor transaction status",
			"order_id", order.ID,
			"transaction_id", n.TransactionID,
			"status", n.RawStatus,
		)
		order.AddNote(fmt.Sprintf("Received unhandled transaction status %q (transaction %s); order left unchanged.", n.RawStatus, n.TransactionID))
		return Outcome{Noted: true, Status: order.Status}, nil
	}
}

// alreadyPaid handles redelivery after a positive outcome: nothing happens,
// and no note is appended a second time.
func (m *StatusMapper) alreadyPaid(order *domain.Order, n *domain.Notification) Outcome {
	m.logger.Info("ignoring notification for already-paid order",
		"order_id", order.ID,
		"order_status", order.Status,
		"transaction_status", n.Status,
	)
	return Outcome{Status: order.Status}
}

func declineNote(n *domain.Notification) string {
	note := fmt.Sprintf("Payment %s by processor (transaction %s).", declineWord(n.Status), n.TransactionID)
	if n.Message != nil && *n.Message != "" {
		note += " Reason: " + *n.Message
	}
	return note
}

func declineWord(s domain.TransactionStatus) string {
	switch s {
	case domain.TxnDeclined:
		return "declined"
	case domain.TxnCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}
