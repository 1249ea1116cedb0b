package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the callback-facing counters for the reconciler.
type Metrics struct {
	CallbacksTotal   *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	ReversalsTotal   *prometheus.CounterVec
	CallbackDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_callbacks_total",
			Help: "Processor callbacks received, by family, endpoint and outcome.",
		}, []string{"family", "endpoint", "outcome"}),

		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_order_transitions_total",
			Help: "Visible order status transitions, by resulting status.",
		}, []string{"to_status"}),

		ReversalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_reversals_total",
			Help: "Automatic reversals issued, by kind (avs_cvn or partial_approval).",
		}, []string{"kind"}),

		CallbackDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reconciler_callback_duration_seconds",
			Help:    "Callback handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"family", "endpoint"}),
	}
}
