package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
)

// Sweeper periodically re-queries the processor for orders stuck awaiting
// payment. A lost status webhook otherwise leaves an order pending forever;
// the processor's transaction view is authoritative, so feeding it back
// through the engine converges the order without redelivery.
type Sweeper struct {
	orders    application.OrderRepository
	gateway   application.GatewayClient
	engine    *services.Engine
	interval  time.Duration
	staleAge  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(
	orders application.OrderRepository,
	gateway application.GatewayClient,
	engine *services.Engine,
	interval time.Duration,
	staleAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		orders:    orders,
		gateway:   gateway,
		engine:    engine,
		interval:  interval,
		staleAge:  staleAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting stale-order sweeper",
		"interval", s.interval,
		"stale_age", s.staleAge,
		"batch_size", s.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping stale-order sweeper")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// RunOnce executes a single sweep cycle.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	stale, err := s.orders.FindStalePending(ctx, s.staleAge, s.batchSize)
	if err != nil {
		s.logger.Error("failed to fetch stale pending orders", "error", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	s.logger.Info("re-querying processor for stale orders", "count", len(stale))

	for _, order := range stale {
		details, err := s.gateway.GetTransaction(ctx, order.TransactionID)
		if err != nil {
			s.logger.Error("processor re-query failed",
				"order_id", order.ID,
				"transaction_id", order.TransactionID,
				"error", err,
			)
			continue
		}

		n := services.NotificationFromDetails(details, order.ID)
		res, err := s.engine.ApplyNotification(ctx, n)
		if err != nil {
			s.logger.Error("failed to reconcile stale order",
				"order_id", order.ID,
				"error", err,
			)
			continue
		}

		if res.Kind == services.ResultApplied {
			s.logger.Info("stale order reconciled",
				"order_id", order.ID,
				"new_status", res.Status,
			)
		}
	}
}
