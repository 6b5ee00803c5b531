package settlement

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

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

func TestLedgerCollector(t *testing.T) {
	executions := ledger.NewMemoryExecutionStore()
	c := NewLedgerCollector(executions, zaptest.NewLogger(t))

	trade := &model.Trade{ID: "t1", QuoteID: "q1"}

	// No execution record means the funding payment is unconfirmed.
	assert.Error(t, c.ConfirmReceipt(context.Background(), trade))

	require.NoError(t, executions.UpsertExecution(model.Execution{QuoteID: "q1", Status: "confirming"}))
	assert.Error(t, c.ConfirmReceipt(context.Background(), trade), "empty funding tx must not confirm")

	require.NoError(t, executions.UpsertExecution(model.Execution{
		QuoteID: "q1", TransactionHash: "0xfunding", Status: "confirming",
	}))
	assert.NoError(t, c.ConfirmReceipt(context.Background(), trade))
}

func TestHTTPBridgeGatewayTransfer(t *testing.T) {
	var got transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/bridge", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(transferResponse{TxHash: "0xbridge"})
	}))
	defer srv.Close()

	g := NewHTTPBridgeGateway(srv.URL, zaptest.NewLogger(t))
	trade := &model.Trade{
		ID:               "t1",
		SourceChain:      model.ChainEthereum,
		DestinationChain: model.ChainPolygon,
		AssetOut:         model.AssetInfo{Chain: model.ChainPolygon, Address: "0xToken", Symbol: "USDC"},
		AmountOutActual:  decimal.NewFromInt(98),
	}

	txHash, err := g.Transfer(context.Background(), "ethereum-polygon-pos", trade)
	require.NoError(t, err)
	assert.Equal(t, "0xbridge", txHash)

	assert.Equal(t, "t1", got.TradeID)
	assert.Equal(t, "ethereum-polygon-pos", got.Route)
	assert.Equal(t, "ethereum", got.Chain)
	assert.Equal(t, "polygon", got.ToChain)
	assert.Equal(t, "98", got.Amount)
}

func TestHTTPBridgeGatewayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPBridgeGateway(srv.URL, zaptest.NewLogger(t))
	_, err := g.Transfer(context.Background(), "ethereum-polygon-pos", &model.Trade{ID: "t1"})
	assert.Error(t, err)
}

func TestHTTPDeliverer(t *testing.T) {
	var got transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/deliver", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(transferResponse{TxHash: "0xdelivery"})
	}))
	defer srv.Close()

	d := NewHTTPDeliverer(srv.URL, zaptest.NewLogger(t))
	trade := &model.Trade{
		ID:                 "t1",
		DestinationChain:   model.ChainPolygon,
		DestinationAddress: "0x3333333333333333333333333333333333333333",
		AssetOut:           model.AssetInfo{Chain: model.ChainPolygon, Address: "0xToken", Symbol: "USDC"},
		AmountOutActual:    decimal.NewFromInt(98),
	}

	txHash, err := d.Deliver(context.Background(), trade)
	require.NoError(t, err)
	assert.Equal(t, "0xdelivery", txHash)
	assert.Equal(t, "polygon", got.Chain)
	assert.Equal(t, trade.DestinationAddress, got.Destination)
}
