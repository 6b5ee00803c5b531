package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// Adapter is the capability surface a DEX integration must expose. Concrete
// implementations wrap one venue's RPC/contract clients and are registered
// at startup; the coordinator only ever talks to this interface.
type Adapter interface {
	Name() string
	SupportedChains() []model.Chain
	GetPrice(ctx context.Context, assetIn, assetOut model.AssetInfo, amountIn decimal.Decimal) (*PriceQuote, error)
	GetSupportedAssets(ctx context.Context, chain model.Chain) ([]model.AssetInfo, error)
	Swap(ctx context.Context, req SwapRequest) (*SwapResult, error)
	EstimateGas(ctx context.Context, assetIn, assetOut model.AssetInfo) (decimal.Decimal, error)
	// IsAvailable is a liveness probe. Implementations should answer from
	// cached health state; a slow probe delays every registry listing.
	IsAvailable(ctx context.Context) bool
}

// PriceQuote is a venue's answer to "how much assetOut for amountIn".
type PriceQuote struct {
	AdapterName string
	AssetIn     model.AssetInfo
	AssetOut    model.AssetInfo
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	Price       decimal.Decimal
	Confidence  float64
	QuotedAt    time.Time
}

// SwapRequest carries everything an adapter needs to execute a swap.
type SwapRequest struct {
	TradeID          string
	Chain            model.Chain
	AssetIn          model.AssetInfo
	AssetOut         model.AssetInfo
	AmountIn         decimal.Decimal
	MinAmountOut     decimal.Decimal
	RecipientAddress string
	Deadline         time.Time
}

// SwapResult reports the outcome of an executed swap.
type SwapResult struct {
	TxHash         string
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	ExecutionPrice decimal.Decimal
	Status         string
}
