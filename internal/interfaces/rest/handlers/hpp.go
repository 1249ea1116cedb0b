package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/interfaces/rest"
	"github.com/commercekit/globalpay-reconciler/internal/signature"
)

// maxCallbackBody caps notification bodies; processor payloads are small.
const maxCallbackBody = 1 << 20

// HPPReturn receives the processor's post through the customer's browser and
// renders the interstitial page that auto-submits the verbatim signed body
// to final. No order is mutated here.
func (h *Handlers) HPPReturn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.observe("hpp", "return", "read_error", start)
		rest.WriteError(w, application.NewMalformedPayloadError("unreadable body"), h.logger)
		return
	}

	data, err := h.hpp.Interstitial(rawBody, r.Header.Get(signature.SignatureParam))
	if err != nil {
		h.observe("hpp", "return", application.ToErrorCode(err), start)
		rest.WriteError(w, err, h.logger)
		return
	}

	h.observe("hpp", "return", "rendered", start)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.hpp.RenderInterstitial(w, data); err != nil {
		h.logger.Error("failed to render interstitial page", "error", err)
	}
}

// HPPStatus is the hosted flow's server-to-server webhook. It is an
// acknowledgment no-op: the authoritative state change for this family
// arrives via final, and that asymmetry with the generic async family is
// deliberate.
func (h *Handlers) HPPStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.observe("hpp", "status", "acked", start)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HPPCancel aborts the hosted flow at the customer's request and sends the
// browser back to checkout with a cancellation marker.
func (h *Handlers) HPPCancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query()
	orderID, _ := strconv.ParseInt(query.Get("order_id"), 10, 64)
	if orderID > 0 {
		if res, err := h.engine.HandleCancel(r.Context(), orderID, query.Get("key")); err != nil {
			h.logger.Warn("hpp cancel could not update order", "order_id", orderID, "error", err)
		} else if res.Kind == services.ResultApplied {
			h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
		}
	}

	h.observe("hpp", "cancel", "redirected", start)
	http.Redirect(w, r, h.hpp.CancelRedirectURL(), http.StatusFound)
}

// HPPFinal is the authoritative terminal step of the hosted flow. It never
// trusts the interstitial page: the signature is re-verified over the exact
// bytes posted before any order mutation.
func (h *Handlers) HPPFinal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseForm(); err != nil {
		h.observe("hpp", "final", "malformed", start)
		rest.WriteError(w, application.NewMalformedPayloadError("unparseable form"), h.logger)
		return
	}

	rawBody := r.PostFormValue("gateway_response")
	suppliedSignature := r.PostFormValue(signature.SignatureParam)

	res, err := h.engine.HandleSignedBody(r.Context(), []byte(rawBody), suppliedSignature)
	if err != nil {
		h.observe("hpp", "final", application.ToErrorCode(err), start)
		rest.WriteError(w, err, h.logger)
		return
	}

	h.observe("hpp", "final", h.outcomeOf(res.Kind), start)
	if res.Kind == services.ResultApplied {
		h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	rest.WriteAck(w, string(res.Kind), h.logger)
}
