package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/pricing"
)

var (
	// ErrAmountBelowMinimum is returned when the requested funding amount
	// is under the configured floor.
	ErrAmountBelowMinimum = errors.New("amount below minimum")
	// ErrUnsupportedChainPair is returned for a funding/execution pair
	// outside the supported chain set.
	ErrUnsupportedChainPair = errors.New("unsupported chain pair")
	// ErrQuoteExpired is returned when a quote is consumed past expires_at.
	ErrQuoteExpired = errors.New("quote expired")
)

// Request is the input for producing a quote.
type Request struct {
	UserID         string
	FundingChain   model.Chain
	ExecutionChain model.Chain
	FundingAsset   model.AssetInfo
	ExecutionAsset model.AssetInfo
	Amount         decimal.Decimal
	// RecipientAddress is the destination wallet the trade output is
	// delivered to. Empty means the caller settles delivery out of band.
	RecipientAddress string
}

// Config carries the quote engine's fee schedule and limits.
type Config struct {
	ServiceFeeBps    int64
	MinFundingAmount decimal.Decimal
	ExpiryHorizon    time.Duration
	// PaymentAddresses maps each funding chain to the deposit wallet a
	// quoted payment must arrive at.
	PaymentAddresses map[model.Chain]string
}

// Engine produces priced, expiring, nonce-bound reservations. It never
// mutates chain state; an uncommitted quote simply expires.
type Engine struct {
	cache  *pricing.Cache
	oracle pricing.Oracle
	quotes ledger.QuoteStore
	sink   events.Sink
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

func NewEngine(cache *pricing.Cache, oracle pricing.Oracle, quotes ledger.QuoteStore, sink events.Sink, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		cache:  cache,
		oracle: oracle,
		quotes: quotes,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(zap.String("component", "quote_engine")),
	}
}

// CreateQuote prices the requested exchange and persists a Pending quote.
func (e *Engine) CreateQuote(ctx context.Context, req Request) (*model.Quote, error) {
	if !req.FundingChain.Valid() || !req.ExecutionChain.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedChainPair, req.FundingChain, req.ExecutionChain)
	}
	if req.Amount.LessThan(e.cfg.MinFundingAmount) {
		return nil, fmt.Errorf("%w: %s < %s", ErrAmountBelowMinimum, req.Amount, e.cfg.MinFundingAmount)
	}
	paymentAddress, ok := e.cfg.PaymentAddresses[req.FundingChain]
	if !ok {
		return nil, fmt.Errorf("no payment address configured for chain %s", req.FundingChain)
	}

	priceIn, err := e.resolvePrice(ctx, req.FundingAsset, req.FundingChain)
	if err != nil {
		return nil, err
	}
	priceOut, err := e.resolvePrice(ctx, req.ExecutionAsset, req.ExecutionChain)
	if err != nil {
		return nil, err
	}
	if priceOut.IsZero() {
		return nil, fmt.Errorf("%w: zero price for %s on %s",
			pricing.ErrPriceUnavailable, req.ExecutionAsset.Symbol, req.ExecutionChain)
	}

	rate := priceIn.Div(priceOut)
	serviceFee := req.Amount.Mul(decimal.New(e.cfg.ServiceFeeBps, -4))
	executionCost := req.Amount.Sub(serviceFee).Mul(rate)

	now := e.now()
	q := &model.Quote{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		FundingChain:     req.FundingChain,
		ExecutionChain:   req.ExecutionChain,
		FundingAsset:     req.FundingAsset,
		ExecutionAsset:   req.ExecutionAsset,
		MaxFundingAmount: req.Amount,
		ExecutionCost:    executionCost,
		ServiceFee:       serviceFee,
		PaymentAddress:   paymentAddress,
		RecipientAddress: req.RecipientAddress,
		ExpiresAt:        now.Add(e.cfg.ExpiryHorizon),
		Nonce:            uuid.New().String(),
		Status:           model.QuoteStatusPending,
		CreatedAt:        now,
	}

	if err := e.quotes.CreateQuote(q); err != nil {
		return nil, fmt.Errorf("failed to persist quote: %w", err)
	}

	e.sink.Publish(events.Event{
		Type:      events.TypeQuoteCreated,
		QuoteID:   q.ID,
		Status:    string(q.Status),
		Timestamp: now,
	})

	e.logger.Info("Created quote",
		zap.String("quote_id", q.ID),
		zap.String("funding_chain", q.FundingChain.String()),
		zap.String("execution_chain", q.ExecutionChain.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("execution_cost", executionCost.String()))
	return q, nil
}

// resolvePrice reads the cache first and falls back to the oracle on a
// miss, repopulating the cache with the live answer.
func (e *Engine) resolvePrice(ctx context.Context, asset model.AssetInfo, chain model.Chain) (decimal.Decimal, error) {
	if cached, ok := e.cache.Get(asset.Symbol, chain); ok {
		return cached.Price, nil
	}

	price, confidence, err := e.oracle.GetPrice(ctx, asset, chain)
	if err != nil {
		return decimal.Zero, err
	}
	e.cache.Set(asset.Symbol, chain, price, confidence)
	return price, nil
}
