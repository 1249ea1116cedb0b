package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers exposes the processor callback endpoints for both families:
// the hosted payment page handshake and the generic async payment methods.
type Handlers struct {
	engine  *services.Engine
	direct  *services.DirectPaymentService
	hpp     *services.HPPFlow
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandlers(
	engine *services.Engine,
	direct *services.DirectPaymentService,
	hpp *services.HPPFlow,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		engine:  engine,
		direct:  direct,
		hpp:     hpp,
		metrics: m,
		logger:  logger,
	}
}

// Routes mounts the callback endpoints. The processor may deliver the
// customer-facing hops as either GET or POST depending on the method, so
// return and cancel accept both.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/callbacks", func(r chi.Router) {
		r.Route("/hpp", func(r chi.Router) {
			r.Get("/return", h.HPPReturn)
			r.Post("/return", h.HPPReturn)
			r.Post("/status", h.HPPStatus)
			r.Get("/cancel", h.HPPCancel)
			r.Post("/cancel", h.HPPCancel)
			r.Post("/final", h.HPPFinal)
		})
		r.Route("/async/{method}", func(r chi.Router) {
			r.Get("/return", h.AsyncReturn)
			r.Post("/return", h.AsyncReturn)
			r.Post("/status", h.AsyncStatus)
			r.Get("/cancel", h.AsyncCancel)
			r.Post("/cancel", h.AsyncCancel)
		})
	})

	// Merchant-internal surface, not reachable by the processor. The
	// checkout backend posts direct-authorization outcomes here.
	r.Route("/internal", func(r chi.Router) {
		r.Post("/orders/{orderID}/authorization", h.DirectResult)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// observe records the callback counter and latency in one place.
func (h *Handlers) observe(family, endpoint, outcome string, start time.Time) {
	h.metrics.CallbacksTotal.WithLabelValues(family, endpoint, outcome).Inc()
	h.metrics.CallbackDuration.WithLabelValues(family, endpoint).Observe(time.Since(start).Seconds())
}

func (h *Handlers) outcomeOf(kind services.ResultKind) string {
	switch kind {
	case services.ResultApplied:
		return "applied"
	case services.ResultDuplicate:
		return "duplicate"
	case services.ResultMismatch:
		return "mismatch"
	case services.ResultNoted:
		return "noted"
	default:
		return "unknown"
	}
}
