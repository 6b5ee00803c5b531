package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// LedgerCollector confirms funding receipt against the execution record:
// a trade's funding is considered received once its quote carries a
// confirmed execution entry (written by the commit path or a webhook).
type LedgerCollector struct {
	executions ledger.ExecutionStore
	logger     *zap.Logger
}

func NewLedgerCollector(executions ledger.ExecutionStore, logger *zap.Logger) *LedgerCollector {
	return &LedgerCollector{executions: executions, logger: logger}
}

func (c *LedgerCollector) ConfirmReceipt(ctx context.Context, trade *model.Trade) error {
	exec, err := c.executions.GetExecution(trade.QuoteID)
	if err != nil {
		return fmt.Errorf("no execution record for quote %s: %w", trade.QuoteID, err)
	}
	if exec.TransactionHash == "" {
		return fmt.Errorf("execution record for quote %s has no funding transaction", trade.QuoteID)
	}
	c.logger.Info("Funding receipt confirmed",
		zap.String("trade_id", trade.ID),
		zap.String("funding_tx", exec.TransactionHash))
	return nil
}

type transferRequest struct {
	TradeID     string `json:"trade_id"`
	Route       string `json:"route,omitempty"`
	Chain       string `json:"chain"`
	ToChain     string `json:"to_chain,omitempty"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Destination string `json:"destination,omitempty"`
}

type transferResponse struct {
	TxHash string `json:"tx_hash"`
}

// HTTPBridgeGateway drives cross-chain transfers through an external
// bridge executor service. Key custody and checkpoint waits live there.
type HTTPBridgeGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPBridgeGateway(baseURL string, logger *zap.Logger) *HTTPBridgeGateway {
	return &HTTPBridgeGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (g *HTTPBridgeGateway) Transfer(ctx context.Context, route string, trade *model.Trade) (string, error) {
	resp, err := postTransfer(ctx, g.client, g.baseURL+"/v1/bridge", transferRequest{
		TradeID: trade.ID,
		Route:   route,
		Chain:   trade.SourceChain.String(),
		ToChain: trade.DestinationChain.String(),
		Asset:   trade.AssetOut.Key(),
		Amount:  trade.AmountOutActual.String(),
	})
	if err != nil {
		return "", fmt.Errorf("bridge transfer over %s failed: %w", route, err)
	}
	g.logger.Info("Bridge transfer submitted",
		zap.String("trade_id", trade.ID),
		zap.String("route", route),
		zap.String("tx_hash", resp.TxHash))
	return resp.TxHash, nil
}

// HTTPDeliverer pays out the final output through an external treasury
// service holding the destination-chain hot wallet.
type HTTPDeliverer struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPDeliverer(baseURL string, logger *zap.Logger) *HTTPDeliverer {
	return &HTTPDeliverer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, trade *model.Trade) (string, error) {
	resp, err := postTransfer(ctx, d.client, d.baseURL+"/v1/deliver", transferRequest{
		TradeID:     trade.ID,
		Chain:       trade.DestinationChain.String(),
		Asset:       trade.AssetOut.Key(),
		Amount:      trade.AmountOutActual.String(),
		Destination: trade.DestinationAddress,
	})
	if err != nil {
		return "", fmt.Errorf("delivery failed: %w", err)
	}
	d.logger.Info("Delivery submitted",
		zap.String("trade_id", trade.ID),
		zap.String("tx_hash", resp.TxHash))
	return resp.TxHash, nil
}

func postTransfer(ctx context.Context, client *http.Client, url string, body transferRequest) (*transferResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("executor returned status %d", resp.StatusCode)
	}
	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
