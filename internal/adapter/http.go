package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// HTTPAdapter talks to a DEX executor service over REST. The venue's
// RPC/contract mechanics live behind that service; the coordinator only
// sees this capability surface.
type HTTPAdapter struct {
	name    string
	baseURL string
	chains  []model.Chain
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPAdapter(name, baseURL string, chains []model.Chain, logger *zap.Logger) *HTTPAdapter {
	return &HTTPAdapter{
		name:    name,
		baseURL: baseURL,
		chains:  chains,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With(zap.String("adapter", name)),
	}
}

func (a *HTTPAdapter) Name() string { return a.name }

func (a *HTTPAdapter) SupportedChains() []model.Chain { return a.chains }

type priceResponse struct {
	AmountOut  decimal.Decimal `json:"amount_out"`
	Price      decimal.Decimal `json:"price"`
	Confidence float64         `json:"confidence"`
}

func (a *HTTPAdapter) GetPrice(ctx context.Context, assetIn, assetOut model.AssetInfo, amountIn decimal.Decimal) (*PriceQuote, error) {
	var resp priceResponse
	err := a.post(ctx, "/v1/price", map[string]interface{}{
		"asset_in":  assetIn,
		"asset_out": assetOut,
		"amount_in": amountIn,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get price from %s: %w", a.name, err)
	}

	return &PriceQuote{
		AdapterName: a.name,
		AssetIn:     assetIn,
		AssetOut:    assetOut,
		AmountIn:    amountIn,
		AmountOut:   resp.AmountOut,
		Price:       resp.Price,
		Confidence:  resp.Confidence,
		QuotedAt:    time.Now(),
	}, nil
}

func (a *HTTPAdapter) GetSupportedAssets(ctx context.Context, chain model.Chain) ([]model.AssetInfo, error) {
	var assets []model.AssetInfo
	if err := a.get(ctx, "/v1/assets?chain="+chain.String(), &assets); err != nil {
		return nil, fmt.Errorf("failed to list assets from %s: %w", a.name, err)
	}
	return assets, nil
}

func (a *HTTPAdapter) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	var result SwapResult
	if err := a.post(ctx, "/v1/swap", req, &result); err != nil {
		return nil, fmt.Errorf("swap on %s failed: %w", a.name, err)
	}
	return &result, nil
}

type gasResponse struct {
	Gas decimal.Decimal `json:"gas"`
}

func (a *HTTPAdapter) EstimateGas(ctx context.Context, assetIn, assetOut model.AssetInfo) (decimal.Decimal, error) {
	var resp gasResponse
	err := a.post(ctx, "/v1/estimate-gas", map[string]interface{}{
		"asset_in":  assetIn,
		"asset_out": assetOut,
	}, &resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to estimate gas on %s: %w", a.name, err)
	}
	return resp.Gas, nil
}

// IsAvailable probes the executor's health endpoint. Any failure means
// "not offered", never an error.
func (a *HTTPAdapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug("Health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (a *HTTPAdapter) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *HTTPAdapter) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *HTTPAdapter) do(req *http.Request, out interface{}) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("executor returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
