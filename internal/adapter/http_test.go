package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

func TestHTTPAdapterGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/price", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"amount_out": "49.85",
			"price":      "0.5",
			"confidence": 0.97,
		})
	}))
	defer srv.Close()

	a := NewHTTPAdapter("uniswap", srv.URL, []model.Chain{model.ChainEthereum}, zaptest.NewLogger(t))

	quote, err := a.GetPrice(context.Background(),
		model.AssetInfo{Symbol: "WETH"}, model.AssetInfo{Symbol: "USDC"}, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "uniswap", quote.AdapterName)
	assert.True(t, quote.AmountOut.Equal(decimal.NewFromFloat(49.85)))
	assert.True(t, quote.Price.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, 0.97, quote.Confidence)
}

func TestHTTPAdapterSwap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/swap", r.URL.Path)
		var req SwapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t1", req.TradeID)
		json.NewEncoder(w).Encode(SwapResult{TxHash: "0xswap", AmountOut: req.MinAmountOut, Status: "success"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter("uniswap", srv.URL, []model.Chain{model.ChainEthereum}, zaptest.NewLogger(t))

	result, err := a.Swap(context.Background(), SwapRequest{
		TradeID:      "t1",
		Chain:        model.ChainEthereum,
		AmountIn:     decimal.NewFromInt(100),
		MinAmountOut: decimal.NewFromInt(98),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xswap", result.TxHash)
	assert.True(t, result.AmountOut.Equal(decimal.NewFromInt(98)))
}

func TestHTTPAdapterIsAvailable(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	a := NewHTTPAdapter("uniswap", srv.URL, []model.Chain{model.ChainEthereum}, zaptest.NewLogger(t))
	assert.True(t, a.IsAvailable(context.Background()))

	healthy = false
	assert.False(t, a.IsAvailable(context.Background()))

	// An unreachable executor is "not offered", never an error.
	dead := NewHTTPAdapter("dead", "http://127.0.0.1:1", nil, zaptest.NewLogger(t))
	assert.False(t, dead.IsAvailable(context.Background()))
}

func TestHTTPAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("uniswap", srv.URL, []model.Chain{model.ChainEthereum}, zaptest.NewLogger(t))

	_, err := a.GetPrice(context.Background(), model.AssetInfo{}, model.AssetInfo{}, decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = a.EstimateGas(context.Background(), model.AssetInfo{}, model.AssetInfo{})
	assert.Error(t, err)
}
