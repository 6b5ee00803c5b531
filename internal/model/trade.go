package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus tracks the execution/settlement half of the lifecycle.
type TradeStatus string

const (
	TradeStatusCreated              TradeStatus = "created"
	TradeStatusExecutingSwap        TradeStatus = "executing_swap"
	TradeStatusSwapCompleted        TradeStatus = "swap_completed"
	TradeStatusSettlementInProgress TradeStatus = "settlement_in_progress"
	TradeStatusCompleted            TradeStatus = "completed"
	TradeStatusFailed               TradeStatus = "failed"
)

// Terminal reports whether no further transition is legal from s.
func (s TradeStatus) Terminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusFailed
}

// CanTransitionTo encodes the legal transition table. Failed is reachable
// from any non-terminal status; everything else moves strictly forward.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	if next == TradeStatusFailed {
		return !s.Terminal()
	}
	switch s {
	case TradeStatusCreated:
		return next == TradeStatusExecutingSwap
	case TradeStatusExecutingSwap:
		return next == TradeStatusSwapCompleted
	case TradeStatusSwapCompleted:
		return next == TradeStatusSettlementInProgress
	case TradeStatusSettlementInProgress:
		return next == TradeStatusCompleted
	default:
		return false
	}
}

// Trade is the execution-facing record for a committed Quote. All mutation
// goes through the ledger's named transition methods so that status and the
// fields it implies change together.
type Trade struct {
	ID                 string          `json:"id"`
	QuoteID            string          `json:"quote_id"`
	UserID             string          `json:"user_id"`
	SourceChain        Chain           `json:"source_chain"`
	DestinationChain   Chain           `json:"destination_chain"`
	DestinationAddress string          `json:"destination_address,omitempty"`
	AssetIn            AssetInfo       `json:"asset_in"`
	AssetOut           AssetInfo       `json:"asset_out"`
	AmountIn           decimal.Decimal `json:"amount_in"`
	AmountOutExpected  decimal.Decimal `json:"amount_out_expected"`
	AmountOutActual    decimal.Decimal `json:"amount_out_actual"`
	DEXUsed            string          `json:"dex_used"`
	Status             TradeStatus     `json:"status"`
	SwapTxHash         string          `json:"swap_tx_hash"`
	DestinationTxHash  string          `json:"destination_tx_hash"`
	SlippageActual     decimal.Decimal `json:"slippage_actual"`
	ExecutionPrice     decimal.Decimal `json:"execution_price"`
	ErrorMessage       string          `json:"error_message"`
	CreatedAt          time.Time       `json:"created_at"`
	ExecutedAt         time.Time       `json:"executed_at"`
	CompletedAt        time.Time       `json:"completed_at"`
}
