package adapter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

type stubAdapter struct {
	name      string
	chains    []model.Chain
	available bool
}

func (s *stubAdapter) Name() string                   { return s.name }
func (s *stubAdapter) SupportedChains() []model.Chain { return s.chains }
func (s *stubAdapter) IsAvailable(context.Context) bool {
	return s.available
}

func (s *stubAdapter) GetPrice(ctx context.Context, assetIn, assetOut model.AssetInfo, amountIn decimal.Decimal) (*PriceQuote, error) {
	return &PriceQuote{AdapterName: s.name, Price: decimal.NewFromInt(1), Confidence: 1}, nil
}

func (s *stubAdapter) GetSupportedAssets(ctx context.Context, chain model.Chain) ([]model.AssetInfo, error) {
	return nil, nil
}

func (s *stubAdapter) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	return &SwapResult{TxHash: "0x" + s.name, AmountOut: req.MinAmountOut, Status: "success"}, nil
}

func (s *stubAdapter) EstimateGas(ctx context.Context, assetIn, assetOut model.AssetInfo) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	r.Register("uniswap", &stubAdapter{name: "uniswap", chains: []model.Chain{model.ChainEthereum}, available: true})

	a, ok := r.Get("uniswap")
	require.True(t, ok)
	assert.Equal(t, "uniswap", a.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestListAvailableFiltersChainAndLiveness(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	r.Register("uniswap", &stubAdapter{name: "uniswap", chains: []model.Chain{model.ChainEthereum}, available: true})
	r.Register("quickswap", &stubAdapter{name: "quickswap", chains: []model.Chain{model.ChainPolygon}, available: true})
	r.Register("sushiswap", &stubAdapter{name: "sushiswap", chains: []model.Chain{model.ChainEthereum, model.ChainPolygon}, available: false})

	// The unavailable adapter is silently excluded, not an error.
	assert.Equal(t, []string{"uniswap"}, r.ListAvailable(context.Background(), model.ChainEthereum))
	assert.Equal(t, []string{"quickswap"}, r.ListAvailable(context.Background(), model.ChainPolygon))
	assert.Empty(t, r.ListAvailable(context.Background(), model.ChainBSC))
}

func TestAllAvailablePreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		r.Register(name, &stubAdapter{name: name, chains: []model.Chain{model.ChainEthereum}, available: true})
	}

	got := make([]string, 0, 3)
	for _, a := range r.AllAvailable(context.Background(), model.ChainEthereum) {
		got = append(got, a.Name())
	}
	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, got)
}

func TestRegisterReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	r.Register("uniswap", &stubAdapter{name: "uniswap", chains: []model.Chain{model.ChainEthereum}, available: false})
	r.Register("sushiswap", &stubAdapter{name: "sushiswap", chains: []model.Chain{model.ChainEthereum}, available: true})

	// Re-registering under the same name replaces in place.
	r.Register("uniswap", &stubAdapter{name: "uniswap", chains: []model.Chain{model.ChainEthereum}, available: true})

	assert.Equal(t, []string{"uniswap", "sushiswap"}, r.ListAvailable(context.Background(), model.ChainEthereum))
}
