// Package settlement runs the post-commit saga: collect the funding
// payment, swap on the selected DEX, bridge to the destination chain and
// deliver the output. Steps are durable facts once taken — there is no
// compensation. A failure after partial fund movement is a reconciliation
// concern, not a rollback.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/risk"
	"github.com/chigozirigeorge/omnixec/internal/router"
)

// ErrUnsupportedChainPair is returned when no bridge routine maps the
// trade's (source, destination) pair.
var ErrUnsupportedChainPair = errors.New("unsupported chain pair")

// Collector confirms receipt of the funding payment for a trade.
type Collector interface {
	ConfirmReceipt(ctx context.Context, trade *model.Trade) error
}

// BridgeGateway moves swapped value across chains over a named route.
type BridgeGateway interface {
	Transfer(ctx context.Context, route string, trade *model.Trade) (txHash string, err error)
}

// Deliverer transfers the final output to the destination wallet.
type Deliverer interface {
	Deliver(ctx context.Context, trade *model.Trade) (txHash string, err error)
}

// Coordinator drives the settlement saga for committed trades.
type Coordinator struct {
	ledger    *ledger.Ledger
	router    *router.Router
	limiter   *risk.Limiter
	collector Collector
	bridge    BridgeGateway
	deliverer Deliverer
	sink      events.Sink
	logger    *zap.Logger
}

func NewCoordinator(
	l *ledger.Ledger,
	r *router.Router,
	limiter *risk.Limiter,
	collector Collector,
	bridge BridgeGateway,
	deliverer Deliverer,
	sink events.Sink,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		ledger:    l,
		router:    r,
		limiter:   limiter,
		collector: collector,
		bridge:    bridge,
		deliverer: deliverer,
		sink:      sink,
		logger:    logger.With(zap.String("component", "settlement")),
	}
}

// SettleTrade runs the saga from wherever the trade currently stands.
// Re-invocation is idempotent at trade-id granularity: steps the status
// shows as already taken are skipped, never re-executed. Any step failure
// marks the trade Failed with a descriptive message and halts; later steps
// never run after an earlier one fails.
func (c *Coordinator) SettleTrade(ctx context.Context, tradeID string) error {
	trade, err := c.ledger.Trades.GetTrade(tradeID)
	if err != nil {
		return err
	}
	if trade.Status.Terminal() {
		c.logger.Info("Trade already terminal, nothing to settle",
			zap.String("trade_id", tradeID),
			zap.String("status", string(trade.Status)))
		return nil
	}

	if trade.Status == model.TradeStatusCreated {
		if err := c.collect(ctx, trade); err != nil {
			return c.fail(trade, "collect", err)
		}
		trade.Status = model.TradeStatusExecutingSwap
	}

	if trade.Status == model.TradeStatusExecutingSwap {
		if err := c.swap(ctx, trade); err != nil {
			return c.fail(trade, "swap", err)
		}
		trade.Status = model.TradeStatusSwapCompleted
	}

	if trade.Status == model.TradeStatusSwapCompleted {
		if err := c.bridgeStep(ctx, trade); err != nil {
			return c.fail(trade, "bridge", err)
		}
		trade.Status = model.TradeStatusSettlementInProgress
	}

	if trade.Status == model.TradeStatusSettlementInProgress {
		if err := c.deliver(ctx, trade); err != nil {
			return c.fail(trade, "deliver", err)
		}
	}

	c.sink.Publish(events.Event{
		Type:      events.TypeTradeCompleted,
		TradeID:   trade.ID,
		QuoteID:   trade.QuoteID,
		Status:    string(model.TradeStatusCompleted),
		Timestamp: time.Now(),
	})
	c.logger.Info("Trade settled", zap.String("trade_id", trade.ID))
	return nil
}

// collect admits the trade through the risk gate, confirms the funding
// payment arrived and moves the trade into ExecutingSwap.
func (c *Coordinator) collect(ctx context.Context, trade *model.Trade) error {
	remaining, err := c.limiter.CheckAndRecord(trade.SourceChain, trade.AmountIn)
	if err != nil {
		return err
	}
	c.logger.Info("Risk gate admitted trade",
		zap.String("trade_id", trade.ID),
		zap.String("chain", trade.SourceChain.String()),
		zap.String("remaining_limit", remaining.String()))

	if err := c.collector.ConfirmReceipt(ctx, trade); err != nil {
		return fmt.Errorf("failed to confirm funding receipt: %w", err)
	}
	return c.ledger.Trades.MarkExecuting(trade.ID)
}

// swap resolves the adapter, executes the swap and records the result.
func (c *Coordinator) swap(ctx context.Context, trade *model.Trade) error {
	sel, err := c.router.SelectAdapter(ctx, trade)
	if err != nil {
		return err
	}

	result, err := sel.Adapter.Swap(ctx, adapter.SwapRequest{
		TradeID:      trade.ID,
		Chain:        trade.SourceChain,
		AssetIn:      trade.AssetIn,
		AssetOut:     trade.AssetOut,
		AmountIn:     trade.AmountIn,
		MinAmountOut: trade.AmountOutExpected,
	})
	if err != nil {
		return fmt.Errorf("swap on %s failed: %w", sel.Adapter.Name(), err)
	}

	slippage := decimal.Zero
	if trade.AmountOutExpected.IsPositive() {
		slippage = trade.AmountOutExpected.Sub(result.AmountOut).Div(trade.AmountOutExpected)
	}

	if err := c.ledger.Trades.MarkSwapCompleted(trade.ID, sel.Adapter.Name(), result.TxHash,
		result.AmountOut, result.ExecutionPrice, slippage); err != nil {
		return err
	}
	trade.DEXUsed = sel.Adapter.Name()
	trade.SwapTxHash = result.TxHash
	trade.AmountOutActual = result.AmountOut

	c.publishTransition(trade, model.TradeStatusSwapCompleted, result.TxHash)
	return nil
}

// bridgeStep moves the trade into SettlementInProgress and, when the trade
// crosses chains, dispatches exactly one pair-specific bridge routine.
// Same-chain trades skip bridging entirely.
func (c *Coordinator) bridgeStep(ctx context.Context, trade *model.Trade) error {
	if err := c.ledger.Trades.MarkSettlementInProgress(trade.ID); err != nil {
		return err
	}
	c.publishTransition(trade, model.TradeStatusSettlementInProgress, "")

	if trade.SourceChain == trade.DestinationChain {
		c.logger.Info("Same-chain trade, skipping bridge", zap.String("trade_id", trade.ID))
		return nil
	}

	txHash, err := c.dispatchBridge(ctx, trade)
	if err != nil {
		return err
	}
	c.logger.Info("Bridged trade output",
		zap.String("trade_id", trade.ID),
		zap.String("route", trade.SourceChain.String()+"->"+trade.DestinationChain.String()),
		zap.String("bridge_tx", txHash))
	return nil
}

// dispatchBridge matches the (source, destination) pair exhaustively. Every
// legal cross-chain pair has exactly one routine; anything else is an
// unsupported pair.
func (c *Coordinator) dispatchBridge(ctx context.Context, trade *model.Trade) (string, error) {
	src, dst := trade.SourceChain, trade.DestinationChain
	switch {
	case src == model.ChainEthereum && dst == model.ChainPolygon:
		return c.bridgeEthereumToPolygon(ctx, trade)
	case src == model.ChainPolygon && dst == model.ChainEthereum:
		return c.bridgePolygonToEthereum(ctx, trade)
	case src == model.ChainEthereum && dst == model.ChainBSC:
		return c.bridgeEthereumToBSC(ctx, trade)
	case src == model.ChainBSC && dst == model.ChainEthereum:
		return c.bridgeBSCToEthereum(ctx, trade)
	case src == model.ChainPolygon && dst == model.ChainBSC:
		return c.bridgePolygonToBSC(ctx, trade)
	case src == model.ChainBSC && dst == model.ChainPolygon:
		return c.bridgeBSCToPolygon(ctx, trade)
	default:
		return "", fmt.Errorf("%w: %s -> %s", ErrUnsupportedChainPair, src, dst)
	}
}

func (c *Coordinator) bridgeEthereumToPolygon(ctx context.Context, trade *model.Trade) (string, error) {
	return c.bridge.Transfer(ctx, "ethereum-polygon-pos", trade)
}

func (c *Coordinator) bridgePolygonToEthereum(ctx context.Context, trade *model.Trade) (string, error) {
	// Exit via the PoS bridge; checkpoint wait is the gateway's problem.
	return c.bridge.Transfer(ctx, "polygon-ethereum-pos-exit", trade)
}

func (c *Coordinator) bridgeEthereumToBSC(ctx context.Context, trade *model.Trade) (string, error) {
	return c.bridge.Transfer(ctx, "ethereum-bsc-canonical", trade)
}

func (c *Coordinator) bridgeBSCToEthereum(ctx context.Context, trade *model.Trade) (string, error) {
	return c.bridge.Transfer(ctx, "bsc-ethereum-canonical", trade)
}

func (c *Coordinator) bridgePolygonToBSC(ctx context.Context, trade *model.Trade) (string, error) {
	return c.bridge.Transfer(ctx, "polygon-bsc-liquidity", trade)
}

func (c *Coordinator) bridgeBSCToPolygon(ctx context.Context, trade *model.Trade) (string, error) {
	return c.bridge.Transfer(ctx, "bsc-polygon-liquidity", trade)
}

// deliver transfers the output to the destination wallet and completes the
// trade.
func (c *Coordinator) deliver(ctx context.Context, trade *model.Trade) error {
	txHash, err := c.deliverer.Deliver(ctx, trade)
	if err != nil {
		return fmt.Errorf("failed to deliver to destination: %w", err)
	}
	if err := c.ledger.Trades.MarkCompleted(trade.ID, txHash); err != nil {
		return err
	}
	trade.Status = model.TradeStatusCompleted
	trade.DestinationTxHash = txHash
	return nil
}

// fail records the step failure on the trade and halts the saga. Steps
// already taken stay durable; nothing is compensated.
func (c *Coordinator) fail(trade *model.Trade, step string, cause error) error {
	msg := fmt.Sprintf("%s step failed: %v", step, cause)
	if err := c.ledger.Trades.MarkFailed(trade.ID, msg); err != nil {
		c.logger.Error("Failed to mark trade failed",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
	}
	c.sink.Publish(events.Event{
		Type:      events.TypeTradeFailed,
		TradeID:   trade.ID,
		QuoteID:   trade.QuoteID,
		Status:    string(model.TradeStatusFailed),
		Detail:    msg,
		Timestamp: time.Now(),
	})
	c.logger.Error("Settlement step failed",
		zap.String("trade_id", trade.ID),
		zap.String("step", step),
		zap.Error(cause))
	return fmt.Errorf("trade %s: %s", trade.ID, msg)
}

func (c *Coordinator) publishTransition(trade *model.Trade, status model.TradeStatus, txHash string) {
	c.sink.Publish(events.Event{
		Type:      events.TypeTradeTransition,
		TradeID:   trade.ID,
		QuoteID:   trade.QuoteID,
		Status:    string(status),
		TxHash:    txHash,
		Timestamp: time.Now(),
	})
}
