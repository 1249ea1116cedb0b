package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/domain"
)

const (
	// partialApprovalCode is the processor response code for an
	// authorization approved for less than the requested amount. Partial
	// approvals are voided pre-emptively, before AVS/CVN evaluation.
	partialApprovalCode = "10"

	voidReasonPostAuthDecline = "POST_AUTH_USER_DECLINE"
)

// Reversal kinds reported on Result.ReversalKind and used as the metric
// label for automatic reversals.
const (
	ReversalKindAVSCVN          = "avs_cvn"
	ReversalKindPartialApproval = "partial_approval"
)

// ReversalPolicy decides whether a just-approved direct authorization should
// be auto-reversed because of merchant-configured AVS/CVN risk thresholds.
type ReversalPolicy struct {
	avsReject map[string]struct{}
	cvnReject map[string]struct{}
}

func NewReversalPolicy(avsRejectCodes, cvnRejectCodes []string) *ReversalPolicy {
	return &ReversalPolicy{
		avsReject: toSet(avsRejectCodes),
		cvnReject: toSet(cvnRejectCodes),
	}
}

// ShouldReverse returns true when the AVS or CVN result code falls in the
// merchant's reject set. An authorization carrying neither code is not
// evaluated at all.
func (p *ReversalPolicy) ShouldReverse(avsCode, cvnCode string) bool {
	if avsCode == "" && cvnCode == "" {
		return false
	}
	if _, ok := p.avsReject[avsCode]; ok && avsCode != "" {
		return true
	}
	if _, ok := p.cvnReject[cvnCode]; ok && cvnCode != "" {
		return true
	}
	return false
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// DirectPaymentService applies the synchronous, non-redirect payment result:
// the processor has already answered the authorization call, and the order
// is settled immediately, subject to the reversal policy.
type DirectPaymentService struct {
	orders  application.OrderRepository
	gateway application.GatewayClient
	policy  *ReversalPolicy
	events  application.EventPublisher
	logger  *slog.Logger
}

func NewDirectPaymentService(
	orders application.OrderRepository,
	gateway application.GatewayClient,
	policy *ReversalPolicy,
	events application.EventPublisher,
	logger *slog.Logger,
) *DirectPaymentService {
	return &DirectPaymentService{
		orders:  orders,
		gateway: gateway,
		policy:  policy,
		events:  events,
		logger:  logger,
	}
}

// ApplyAuthorization reconciles a direct authorization response onto the
// order. Approved transactions that trip the partial-approval sentinel or
// the AVS/CVN reject sets are reversed and the order failed; the
// customer-visible outcome of a reversal is "declined", never a system
// error, so reversal call failures are logged and swallowed.
func (s *DirectPaymentService) ApplyAuthorization(ctx context.Context, orderID int64, auth application.AuthorizationResult) (*Result, error) {
	res := &Result{OrderID: orderID}

	err := s.orders.WithOrderLock(ctx, orderID, func(order *domain.Order) error {
		res.Status = order.Status

		if auth.TransactionID != "" && !order.MatchesTransaction(auth.TransactionID) {
			res.Kind = ResultMismatch
			return errNoMutation
		}
		if !order.AwaitingPayment() {
			res.Kind = ResultDuplicate
			return errNoMutation
		}

		if auth.ResponseCode == partialApprovalCode {
			res.ReversalKind = ReversalKindPartialApproval
			s.voidPartialApproval(ctx, order, auth)
			return s.fail(order, res)
		}

		if auth.ResponseCode != "00" {
			order.AddNote(fmt.Sprintf("Payment declined by processor (code %s, transaction %s).", auth.ResponseCode, auth.TransactionID))
			return s.fail(order, res)
		}

		if s.policy.ShouldReverse(auth.AVSCode, auth.CVNCode) {
			res.ReversalKind = ReversalKindAVSCVN
			s.reverse(ctx, order, auth)
			return s.fail(order, res)
		}

		if err := order.Complete(auth.TransactionID); err != nil {
			return err
		}
		order.AddNote(fmt.Sprintf("Payment completed (transaction %s).", auth.TransactionID))
		res.Kind = ResultApplied
		res.Status = order.Status
		return nil
	})
	if err != nil && !errors.Is(err, errNoMutation) {
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			return nil, application.NewOrderNotFoundError(orderID)
		}
		if domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField) {
			return nil, application.NewMalformedPayloadError(err.Error())
		}
		return nil, application.NewInternalError(err)
	}

	if res.Kind == ResultApplied && s.events != nil {
		event := application.OrderEvent{
			OrderID:       res.OrderID,
			Status:        res.Status,
			TransactionID: auth.TransactionID,
			AmountCents:   auth.AmountCents,
			Currency:      auth.Currency,
		}
		if pubErr := s.events.PublishStatusChange(ctx, event); pubErr != nil {
			s.logger.Error("failed to publish order event", "order_id", orderID, "error", pubErr)
		}
	}
	return res, nil
}

func (s *DirectPaymentService) fail(order *domain.Order, res *Result) error {
	if err := order.SetStatus(domain.StatusFailed); err != nil {
		return err
	}
	res.Kind = ResultApplied
	res.Status = order.Status
	return nil
}

// voidPartialApproval pre-emptively voids a partially approved transaction
// with a fixed reason code. A void outage does not change the outcome.
func (s *DirectPaymentService) voidPartialApproval(ctx context.Context, order *domain.Order, auth application.AuthorizationResult) {
	order.AddNote(fmt.Sprintf("Partial approval received; voiding transaction %s.", auth.TransactionID))
	if _, err := s.gateway.Void(ctx, auth.TransactionID, voidReasonPostAuthDecline); err != nil {
		s.logger.Error("void of partial approval failed",
			"order_id", order.ID,
			"transaction_id", auth.TransactionID,
			"error", err,
		)
	}
}

// reverse issues a full-amount reversal of a risk-rejected authorization.
func (s *DirectPaymentService) reverse(ctx context.Context, order *domain.Order, auth application.AuthorizationResult) {
	order.AddNote(fmt.Sprintf(
		"AVS/CVN check failed (AVS %q, CVN %q); reversing transaction %s.",
		auth.AVSCode, auth.CVNCode, auth.TransactionID,
	))
	if _, err := s.gateway.Reverse(ctx, auth.TransactionID, auth.AmountCents); err != nil {
		s.logger.Error("reversal of risk-rejected authorization failed",
			"order_id", order.ID,
			"transaction_id", auth.TransactionID,
			"error", err,
		)
	}
}
