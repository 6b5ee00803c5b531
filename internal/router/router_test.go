package router

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

type fakeAdapter struct {
	name      string
	chains    []model.Chain
	available bool
	gas       decimal.Decimal
	gasErr    error
}

func (f *fakeAdapter) Name() string                     { return f.name }
func (f *fakeAdapter) SupportedChains() []model.Chain   { return f.chains }
func (f *fakeAdapter) IsAvailable(context.Context) bool { return f.available }

func (f *fakeAdapter) GetPrice(ctx context.Context, assetIn, assetOut model.AssetInfo, amountIn decimal.Decimal) (*adapter.PriceQuote, error) {
	return &adapter.PriceQuote{AdapterName: f.name, Price: decimal.NewFromInt(1)}, nil
}

func (f *fakeAdapter) GetSupportedAssets(ctx context.Context, chain model.Chain) ([]model.AssetInfo, error) {
	return nil, nil
}

func (f *fakeAdapter) Swap(ctx context.Context, req adapter.SwapRequest) (*adapter.SwapResult, error) {
	return &adapter.SwapResult{TxHash: "0x" + f.name}, nil
}

func (f *fakeAdapter) EstimateGas(ctx context.Context, assetIn, assetOut model.AssetInfo) (decimal.Decimal, error) {
	if f.gasErr != nil {
		return decimal.Zero, f.gasErr
	}
	return f.gas, nil
}

func ethTrade(dexUsed string) *model.Trade {
	return &model.Trade{
		ID:          "t1",
		SourceChain: model.ChainEthereum,
		DEXUsed:     dexUsed,
	}
}

func newTestRouter(t *testing.T, adapters ...*fakeAdapter) *Router {
	registry := adapter.NewRegistry(zaptest.NewLogger(t))
	for _, a := range adapters {
		registry.Register(a.name, a)
	}
	return New(registry, zaptest.NewLogger(t))
}

func TestSelectAdapterPinnedVenueWins(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "cheap", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(10)},
		&fakeAdapter{name: "pinned", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(500)},
	)

	sel, err := r.SelectAdapter(context.Background(), ethTrade("pinned"))
	require.NoError(t, err)
	assert.Equal(t, "pinned", sel.Adapter.Name())
}

func TestSelectAdapterPinnedVenueUnavailable(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "cheap", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(10)},
		&fakeAdapter{name: "pinned", chains: []model.Chain{model.ChainEthereum}, available: false, gas: decimal.NewFromInt(500)},
	)

	// A pinned but dead venue is an error, never a silent re-route.
	_, err := r.SelectAdapter(context.Background(), ethTrade("pinned"))
	assert.ErrorIs(t, err, ErrAdapterNotFound)

	_, err = r.SelectAdapter(context.Background(), ethTrade("unregistered"))
	assert.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestSelectAdapterLowestGasWins(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "expensive", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(300)},
		&fakeAdapter{name: "cheap", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(100)},
		&fakeAdapter{name: "dead", chains: []model.Chain{model.ChainEthereum}, available: false, gas: decimal.NewFromInt(1)},
	)

	sel, err := r.SelectAdapter(context.Background(), ethTrade(""))
	require.NoError(t, err)
	assert.Equal(t, "cheap", sel.Adapter.Name())
	assert.True(t, sel.GasEstimate.Equal(decimal.NewFromInt(100)))
}

func TestSelectAdapterTieBreaksByRegistrationOrder(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "first", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(100)},
		&fakeAdapter{name: "second", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(100)},
	)

	sel, err := r.SelectAdapter(context.Background(), ethTrade(""))
	require.NoError(t, err)
	assert.Equal(t, "first", sel.Adapter.Name())
}

func TestSelectAdapterSkipsFailedEstimates(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "broken", chains: []model.Chain{model.ChainEthereum}, available: true, gasErr: errors.New("rpc down")},
		&fakeAdapter{name: "working", chains: []model.Chain{model.ChainEthereum}, available: true, gas: decimal.NewFromInt(200)},
	)

	sel, err := r.SelectAdapter(context.Background(), ethTrade(""))
	require.NoError(t, err)
	assert.Equal(t, "working", sel.Adapter.Name())
}

func TestSelectAdapterNoneAvailable(t *testing.T) {
	r := newTestRouter(t,
		&fakeAdapter{name: "dead", chains: []model.Chain{model.ChainEthereum}, available: false},
		&fakeAdapter{name: "wrong-chain", chains: []model.Chain{model.ChainBSC}, available: true, gas: decimal.NewFromInt(1)},
	)

	_, err := r.SelectAdapter(context.Background(), ethTrade(""))
	assert.ErrorIs(t, err, ErrNoAdapterAvailable)

	// All estimates failing is also "no adapter available".
	r = newTestRouter(t,
		&fakeAdapter{name: "broken", chains: []model.Chain{model.ChainEthereum}, available: true, gasErr: errors.New("rpc down")},
	)
	_, err = r.SelectAdapter(context.Background(), ethTrade(""))
	assert.ErrorIs(t, err, ErrNoAdapterAvailable)
}
