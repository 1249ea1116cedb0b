package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/callback"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/commercekit/globalpay-reconciler/internal/signature"
)

// ResultKind classifies how the engine disposed of a notification.
type ResultKind string

const (
	// ResultApplied means the order status moved.
	ResultApplied ResultKind = "APPLIED"
	// ResultDuplicate means the notification was consistent but had
	// already been applied; nothing changed.
	ResultDuplicate ResultKind = "DUPLICATE"
	// ResultMismatch means the notification referenced a transaction id
	// other than the one pinned to the order. The order is untouched and
	// the caller responds success to avoid informative probing.
	ResultMismatch ResultKind = "MISMATCH"
	// ResultNoted means the status was unhandled; a note was recorded
	// and the order status left alone.
	ResultNoted ResultKind = "NOTED"
)

// Result is the terminal disposition of one notification.
type Result struct {
	Kind    ResultKind
	OrderID int64
	Status  domain.OrderStatus

	// ReversalKind names the automatic reversal a direct authorization
	// triggered ("avs_cvn" or "partial_approval"). Empty when no reversal
	// was issued.
	ReversalKind string
}

// errNoMutation aborts the locked section without persisting anything.
var errNoMutation = errors.New("no mutation")

// Engine is the order reconciliation state machine. Every callback family
// funnels into the same skeleton: verify signature, parse, load the order
// under lock, check the transaction-id pin, dispatch to the status mapper,
// persist, respond.
type Engine struct {
	orders  application.OrderRepository
	gateway application.GatewayClient
	mapper  *StatusMapper
	events  application.EventPublisher
	appKey  string
	logger  *slog.Logger
}

func NewEngine(
	orders application.OrderRepository,
	gateway application.GatewayClient,
	mapper *StatusMapper,
	events application.EventPublisher,
	appKey string,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		orders:  orders,
		gateway: gateway,
		mapper:  mapper,
		events:  events,
		appKey:  appKey,
		logger:  logger,
	}
}

// HandleSignedBody processes an authoritative signed JSON notification: the
// HPP final step and the generic async status webhook both land here.
func (e *Engine) HandleSignedBody(ctx context.Context, rawBody []byte, suppliedSignature string) (*Result, error) {
	if !signature.Verify(rawBody, suppliedSignature, e.appKey) {
		e.logger.Error("callback signature verification failed",
			"body_len", len(rawBody),
		)
		return nil, application.NewSignatureInvalidError()
	}

	n := callback.Parse(rawBody)
	if !n.HasOrder() {
		e.logger.Warn("callback carried no resolvable order id", "reference", n.Reference)
		return nil, application.NewOrderNotFoundError(0)
	}

	return e.ApplyNotification(ctx, n)
}

// HandleAsyncReturn processes the generic async family's customer-facing
// return. The query string is authenticated, but its contents are only a
// back-reference: the processor is re-queried by transaction id and the
// query result drives the transition, not the callback body.
func (e *Engine) HandleAsyncReturn(ctx context.Context, query url.Values) (*Result, error) {
	if !signature.VerifyQuery(query, e.appKey) {
		e.logger.Error("async return signature verification failed")
		return nil, application.NewSignatureInvalidError()
	}

	q := callback.ParseQuery(query)
	if q.TransactionID == "" {
		return nil, application.NewMalformedPayloadError("missing transaction id")
	}

	details, err := e.gateway.GetTransaction(ctx, q.TransactionID)
	if err != nil {
		e.logger.Error("processor re-query failed",
			"transaction_id", q.TransactionID,
			"error", err,
		)
		return nil, application.NewGatewayUnavailableError(err)
	}

	n := NotificationFromDetails(details, q.OrderID)
	if !n.HasOrder() {
		return nil, application.NewOrderNotFoundError(0)
	}

	return e.ApplyNotification(ctx, n)
}

// HandleCancel processes a customer-initiated abort: the order is cancelled
// only if it is still awaiting payment, otherwise the abort is a no-op.
// The caller must present the order key; a bare order id is guessable and
// must not be enough to cancel someone else's order.
func (e *Engine) HandleCancel(ctx context.Context, orderID int64, orderKey string) (*Result, error) {
	if orderID <= 0 {
		return nil, application.NewOrderNotFoundError(orderID)
	}

	res := &Result{OrderID: orderID}
	err := e.orders.WithOrderLock(ctx, orderID, func(order *domain.Order) error {
		res.Status = order.Status
		if orderKey == "" ||
			subtle.ConstantTimeCompare([]byte(order.OrderKey), []byte(orderKey)) != 1 {
			e.logger.Warn("cancel request rejected: order key does not match",
				"order_id", orderID,
			)
			res.Kind = ResultMismatch
			return errNoMutation
		}
		if !order.AwaitingPayment() || order.Status == domain.StatusCancelled {
			res.Kind = ResultDuplicate
			return errNoMutation
		}
		if err := order.SetStatus(domain.StatusCancelled); err != nil {
			return err
		}
		order.AddNote("Payment cancelled by customer.")
		res.Kind = ResultApplied
		res.Status = order.Status
		return nil
	})
	if err != nil && !errors.Is(err, errNoMutation) {
		return nil, e.mapRepositoryError(orderID, err)
	}

	if res.Kind == ResultApplied {
		e.publish(ctx, res, "")
	}
	return res, nil
}

// ApplyNotification runs steps 3-5 of the skeleton for an already-verified,
// already-parsed notification: load under lock, pin check, map, persist.
func (e *Engine) ApplyNotification(ctx context.Context, n *domain.Notification) (*Result, error) {
	res := &Result{OrderID: n.OrderID}

	err := e.orders.WithOrderLock(ctx, n.OrderID, func(order *domain.Order) error {
		res.Status = order.Status

		if n.TransactionID != "" && !order.MatchesTransaction(n.TransactionID) {
			e.logger.Warn("notification transaction id does not match order",
				"order_id", order.ID,
				"pinned", order.TransactionID,
				"supplied", n.TransactionID,
			)
			res.Kind = ResultMismatch
			return errNoMutation
		}

		outcome, err := e.mapper.Apply(order, n)
		if err != nil {
			return err
		}

		res.Status = outcome.Status
		switch {
		case outcome.Changed:
			res.Kind = ResultApplied
		case outcome.Noted:
			res.Kind = ResultNoted
		default:
			res.Kind = ResultDuplicate
			return errNoMutation
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoMutation) {
		return nil, e.mapRepositoryError(n.OrderID, err)
	}

	if res.Kind == ResultApplied {
		e.publish(ctx, res, n.TransactionID)
	}

	e.logger.Info("notification reconciled",
		"order_id", res.OrderID,
		"kind", res.Kind,
		"order_status", res.Status,
		"transaction_status", n.Status,
	)
	return res, nil
}

func (e *Engine) mapRepositoryError(orderID int64, err error) error {
	if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
		return application.NewOrderNotFoundError(orderID)
	}
	if domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField) {
		return application.NewMalformedPayloadError(err.Error())
	}
	return application.NewInternalError(fmt.Errorf("reconciling order %d: %w", orderID, err))
}

// publish emits the status-change event best effort: a broker outage must
// not fail a callback that already committed.
func (e *Engine) publish(ctx context.Context, res *Result, txnID string) {
	event := application.OrderEvent{
		OrderID:       res.OrderID,
		Status:        res.Status,
		TransactionID: txnID,
	}
	if err := e.events.PublishStatusChange(ctx, event); err != nil {
		e.logger.Error("failed to publish order event",
			"order_id", res.OrderID,
			"error", err,
		)
	}
}

// NotificationFromDetails converts the processor's authoritative transaction
// view into the notification shape the mapper consumes.
func NotificationFromDetails(d *application.TransactionDetails, fallbackOrderID int64) *domain.Notification {
	n := callback.ParseQuery(url.Values{
		"id":        {d.TransactionID},
		"status":    {d.Status},
		"reference": {d.Reference},
	})
	if !n.HasOrder() {
		n.OrderID = fallbackOrderID
	}
	n.ResultCode = d.ResultCode
	n.Message = d.Message
	if d.AmountCents > 0 {
		amount := d.AmountCents
		n.AmountCents = &amount
	}
	if d.Currency != "" {
		currency := d.Currency
		n.Currency = &currency
	}
	return n
}
