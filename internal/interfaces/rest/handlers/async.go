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
	"github.com/go-chi/chi/v5"
)

// AsyncReturn is the customer-facing redirect target for bank-redirect and
// buy-now-pay-later methods. The signed query string is only a
// back-reference; the engine re-queries the processor by transaction id and
// trusts that answer, then the browser is redirected onward.
func (h *Handlers) AsyncReturn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	method := chi.URLParam(r, "method")

	res, err := h.engine.HandleAsyncReturn(r.Context(), r.URL.Query())
	if err != nil {
		h.observe("async", "return", application.ToErrorCode(err), start)
		h.logger.Error("async return failed",
			"method", method,
			"error", err,
		)
		rest.WriteError(w, err, h.logger)
		return
	}

	h.observe("async", "return", h.outcomeOf(res.Kind), start)
	if res.Kind == services.ResultApplied {
		h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	http.Redirect(w, r, h.hpp.ReturnRedirectURL(res), http.StatusFound)
}

// AsyncStatus is the generic family's server-to-server webhook. Unlike the
// hosted flow's status, this one is authoritative and drives capture.
func (h *Handlers) AsyncStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.observe("async", "status", "read_error", start)
		rest.WriteError(w, application.NewMalformedPayloadError("unreadable body"), h.logger)
		return
	}

	res, err := h.engine.HandleSignedBody(r.Context(), rawBody, r.Header.Get(signature.SignatureParam))
	if err != nil {
		h.observe("async", "status", application.ToErrorCode(err), start)
		rest.WriteError(w, err, h.logger)
		return
	}

	h.observe("async", "status", h.outcomeOf(res.Kind), start)
	if res.Kind == services.ResultApplied {
		h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	rest.WriteAck(w, string(res.Kind), h.logger)
}

// AsyncCancel handles a customer-initiated abort of a redirect payment.
func (h *Handlers) AsyncCancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query()
	orderID, _ := strconv.ParseInt(query.Get("order_id"), 10, 64)
	if orderID > 0 {
		if res, err := h.engine.HandleCancel(r.Context(), orderID, query.Get("key")); err != nil {
			h.logger.Warn("async cancel could not update order", "order_id", orderID, "error", err)
		} else if res.Kind == services.ResultApplied {
			h.metrics.TransitionsTotal.WithLabelValues(string(res.Status)).Inc()
		}
	}

	h.observe("async", "cancel", "redirected", start)
	http.Redirect(w, r, h.hpp.CancelRedirectURL(), http.StatusFound)
}
