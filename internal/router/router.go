// Package router selects the DEX adapter a trade's swap runs on.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

var (
	// ErrAdapterNotFound is returned when a trade pins an adapter that is
	// not registered or not available.
	ErrAdapterNotFound = errors.New("adapter not found")
	// ErrNoAdapterAvailable is returned when no live adapter serves the
	// trade's chain.
	ErrNoAdapterAvailable = errors.New("no adapter available")
)

// Selection is the routing decision for one trade.
type Selection struct {
	Adapter     adapter.Adapter
	GasEstimate decimal.Decimal
}

// Router picks the adapter for a trade's asset pair and chain.
type Router struct {
	registry *adapter.Registry
	logger   *zap.Logger
}

func New(registry *adapter.Registry, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger.With(zap.String("component", "execution_router")),
	}
}

// SelectAdapter resolves the adapter a trade should swap on. A venue
// already pinned on the trade (dex_used) wins when it is registered and
// live; otherwise the cheapest gas estimate among the chain's available
// adapters wins, with ties broken by registration order.
func (r *Router) SelectAdapter(ctx context.Context, trade *model.Trade) (*Selection, error) {
	if trade.DEXUsed != "" {
		a, ok := r.registry.Get(trade.DEXUsed)
		if !ok || !a.IsAvailable(ctx) {
			return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, trade.DEXUsed)
		}
		gas, err := a.EstimateGas(ctx, trade.AssetIn, trade.AssetOut)
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas on %s: %w", a.Name(), err)
		}
		return &Selection{Adapter: a, GasEstimate: gas}, nil
	}

	candidates := r.registry.AllAvailable(ctx, trade.SourceChain)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for chain %s", ErrNoAdapterAvailable, trade.SourceChain)
	}

	var best *Selection
	for _, a := range candidates {
		gas, err := a.EstimateGas(ctx, trade.AssetIn, trade.AssetOut)
		if err != nil {
			r.logger.Warn("Gas estimate failed, skipping adapter",
				zap.String("adapter", a.Name()),
				zap.String("trade_id", trade.ID),
				zap.Error(err))
			continue
		}
		// Strict less-than keeps the earliest-registered adapter on ties.
		if best == nil || gas.LessThan(best.GasEstimate) {
			best = &Selection{Adapter: a, GasEstimate: gas}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: all gas estimates failed on %s", ErrNoAdapterAvailable, trade.SourceChain)
	}

	r.logger.Info("Selected adapter",
		zap.String("trade_id", trade.ID),
		zap.String("adapter", best.Adapter.Name()),
		zap.String("gas_estimate", best.GasEstimate.String()))
	return best, nil
}
