// Package ledger is the single source of truth for Quote, Execution and
// Trade records. All status changes go through named transition methods so
// the status field and the fields it implies change together; partial
// updates are never observable.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when creating a record whose id exists.
	ErrDuplicateID = errors.New("record already exists")
	// ErrStatusConflict is returned by a guarded quote transition whose
	// expected pre-transition status did not match the stored one.
	ErrStatusConflict = errors.New("quote status conflict")
	// ErrInvalidTransition is returned when a trade transition falls
	// outside the legal transition table.
	ErrInvalidTransition = errors.New("invalid trade transition")
)

// QuoteStore persists quotes and applies guarded status transitions.
type QuoteStore interface {
	CreateQuote(q *model.Quote) error
	GetQuote(id string) (*model.Quote, error)
	// TransitionQuote moves the quote from one status to another, failing
	// with ErrStatusConflict unless the stored status equals from. This is
	// the optimistic-concurrency guard that keeps stale or duplicate
	// webhooks from clobbering a more advanced state.
	TransitionQuote(id string, from, to model.QuoteStatus) error
}

// ExecutionStore persists the 1:1 execution record for committed quotes.
type ExecutionStore interface {
	// UpsertExecution creates or replaces the execution keyed by quote_id.
	UpsertExecution(e model.Execution) error
	GetExecution(quoteID string) (*model.Execution, error)
}

// TradeStore persists trades and exposes the state machine transitions of
// the settlement saga.
type TradeStore interface {
	CreateTrade(t *model.Trade) error
	GetTrade(id string) (*model.Trade, error)
	GetTradeByQuoteID(quoteID string) (*model.Trade, error)
	// ListStuckTrades returns trades sitting in status since before cutoff,
	// for the settlement reconciler.
	ListStuckTrades(status model.TradeStatus, cutoff time.Time) ([]*model.Trade, error)

	MarkExecuting(id string) error
	MarkSwapCompleted(id, dexUsed, swapTxHash string, amountOut, executionPrice, slippage decimal.Decimal) error
	MarkSettlementInProgress(id string) error
	MarkCompleted(id, destinationTxHash string) error
	MarkFailed(id, errorMessage string) error
}

// Ledger bundles the three stores a deployment selected at startup.
type Ledger struct {
	Quotes     QuoteStore
	Executions ExecutionStore
	Trades     TradeStore
}
