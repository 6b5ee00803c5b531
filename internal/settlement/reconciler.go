package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// Reconciler scans for trades stuck in SettlementInProgress and re-invokes
// delivery. It never re-invokes Collect or Swap — funds collected or
// swapped are durable facts; only the delivery leg is safely repeatable.
type Reconciler struct {
	ledger      *ledger.Ledger
	coordinator *Coordinator
	stuckAfter  time.Duration
	interval    time.Duration
	logger      *zap.Logger
}

func NewReconciler(l *ledger.Ledger, c *Coordinator, stuckAfter, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		ledger:      l,
		coordinator: c,
		stuckAfter:  stuckAfter,
		interval:    interval,
		logger:      logger.With(zap.String("component", "settlement_reconciler")),
	}
}

// Run scans on a fixed interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reconcileOnce(ctx); err != nil {
				r.logger.Error("Reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.stuckAfter)
	stuck, err := r.ledger.Trades.ListStuckTrades(model.TradeStatusSettlementInProgress, cutoff)
	if err != nil {
		return err
	}

	for _, trade := range stuck {
		r.logger.Info("Re-invoking delivery for stuck trade",
			zap.String("trade_id", trade.ID),
			zap.Time("created_at", trade.CreatedAt))
		// SettleTrade skips every step the status shows as done; from
		// SettlementInProgress only delivery runs.
		if err := r.coordinator.SettleTrade(ctx, trade.ID); err != nil {
			r.logger.Error("Stuck trade reconciliation failed",
				zap.String("trade_id", trade.ID),
				zap.Error(err))
		}
	}
	return nil
}
