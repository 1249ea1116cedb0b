package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

// directResultRequest is the synchronous authorization outcome the checkout
// backend posts once the processor has answered a direct (non-redirect)
// payment call.
type directResultRequest struct {
	TransactionID string `json:"transaction_id"`
	ResponseCode  string `json:"response_code"`
	AVSCode       string `json:"avs_code"`
	CVNCode       string `json:"cvn_code"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

// DirectResult applies a direct-authorization response to an order, running
// the partial-approval void and the AVS/CVN reversal policy.
func (h *Handlers) DirectResult(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		h.observe("direct", "authorization", "malformed", start)
		rest.WriteError(w, application.NewMalformedPayloadError("invalid order id"), h.logger)
		return
	}

	var req directResultRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCallbackBody)).Decode(&req); err != nil {
		h.observe("direct", "authorization", "malformed", start)
		rest.WriteError(w, application.NewMalformedPayloadError("unparseable body"), h.logger)
		return
	}

	res, err := h.direct.ApplyAuthorization(r.Context(), orderID, application.AuthorizationResult{
		TransactionID: req.TransactionID,
		ResponseCode:  req.ResponseCode,
		AVSCode:       req.AVSCode,
		CVNCode:       req.CVNCode,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
	})
	if err != nil {
		h.observe("direct", "authorization", application.ToErrorCode(err), start)
		rest.WriteError(w, err, h.logger)
		return
	}

	h.observe("direct", "authorization", h.outcomeOf(res.Kind), start)
	if res.ReversalKind != "" {
		h.metrics.ReversalsTotal.WithLabelValues(res.ReversalKind).Inc()
	}
	if res.Kind == services.ResultApplied {
		h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	rest.WriteAck(w, string(res.Kind), h.logger)
}
