package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// ErrPriceUnavailable means no live price source could answer for the
// asset/chain pair.
var ErrPriceUnavailable = errors.New("no live price available")

// Oracle resolves a current price and confidence for an asset on a chain.
type Oracle interface {
	GetPrice(ctx context.Context, asset model.AssetInfo, chain model.Chain) (decimal.Decimal, float64, error)
}

// AdapterOracle answers price lookups by fanning out to the registered DEX
// adapters for the chain and taking the first live answer. Venue quotes are
// denominated against the chain's reference stable asset.
type AdapterOracle struct {
	registry  *adapter.Registry
	reference map[model.Chain]model.AssetInfo
	probeSize decimal.Decimal
	logger    *zap.Logger
}

func NewAdapterOracle(registry *adapter.Registry, reference map[model.Chain]model.AssetInfo, logger *zap.Logger) *AdapterOracle {
	return &AdapterOracle{
		registry:  registry,
		reference: reference,
		probeSize: decimal.NewFromInt(1),
		logger:    logger.With(zap.String("component", "adapter_oracle")),
	}
}

func (o *AdapterOracle) GetPrice(ctx context.Context, asset model.AssetInfo, chain model.Chain) (decimal.Decimal, float64, error) {
	ref, ok := o.reference[chain]
	if !ok {
		return decimal.Zero, 0, fmt.Errorf("no reference asset configured for chain %s", chain)
	}

	for _, a := range o.registry.AllAvailable(ctx, chain) {
		quote, err := a.GetPrice(ctx, asset, ref, o.probeSize)
		if err != nil {
			o.logger.Warn("Adapter price lookup failed",
				zap.String("adapter", a.Name()),
				zap.String("symbol", asset.Symbol),
				zap.Error(err))
			continue
		}
		return quote.Price, quote.Confidence, nil
	}
	return decimal.Zero, 0, fmt.Errorf("%w for %s on %s", ErrPriceUnavailable, asset.Symbol, chain)
}
