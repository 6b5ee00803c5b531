package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// MemoryQuoteStore is the in-memory QuoteStore. Each store carries its own
// reader/writer lock; there is no cross-store locking.
type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*model.Quote
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{quotes: make(map[string]*model.Quote)}
}

func (s *MemoryQuoteStore) CreateQuote(q *model.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.quotes[q.ID]; exists {
		return fmt.Errorf("quote %s: %w", q.ID, ErrDuplicateID)
	}
	cp := *q
	s.quotes[q.ID] = &cp
	return nil
}

func (s *MemoryQuoteStore) GetQuote(id string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	cp := *q
	return &cp, nil
}

func (s *MemoryQuoteStore) TransitionQuote(id string, from, to model.QuoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	if q.Status != from {
		return fmt.Errorf("quote %s is %s, expected %s: %w", id, q.Status, from, ErrStatusConflict)
	}
	q.Status = to
	return nil
}

// MemoryExecutionStore is the in-memory ExecutionStore.
type MemoryExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]model.Execution
}

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{executions: make(map[string]model.Execution)}
}

func (s *MemoryExecutionStore) UpsertExecution(e model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.UpdatedAt = time.Now()
	s.executions[e.QuoteID] = e
	return nil
}

func (s *MemoryExecutionStore) GetExecution(quoteID string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[quoteID]
	if !ok {
		return nil, fmt.Errorf("execution for quote %s: %w", quoteID, ErrNotFound)
	}
	return &e, nil
}

// MemoryTradeStore is the in-memory TradeStore. Transitions on the same
// trade are totally ordered by the store lock; transitions on different
// trades may interleave freely.
type MemoryTradeStore struct {
	mu     sync.RWMutex
	trades map[string]*model.Trade
	now    func() time.Time
}

func NewMemoryTradeStore() *MemoryTradeStore {
	return &MemoryTradeStore{trades: make(map[string]*model.Trade), now: time.Now}
}

func (s *MemoryTradeStore) CreateTrade(t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[t.ID]; exists {
		return fmt.Errorf("trade %s: %w", t.ID, ErrDuplicateID)
	}
	cp := *t
	if cp.Status == "" {
		cp.Status = model.TradeStatusCreated
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.trades[t.ID] = &cp
	return nil
}

func (s *MemoryTradeStore) GetTrade(id string) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryTradeStore) GetTradeByQuoteID(quoteID string) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.trades {
		if t.QuoteID == quoteID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("trade for quote %s: %w", quoteID, ErrNotFound)
}

func (s *MemoryTradeStore) ListStuckTrades(status model.TradeStatus, cutoff time.Time) ([]*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stuck []*model.Trade
	for _, t := range s.trades {
		if t.Status == status && t.CreatedAt.Before(cutoff) {
			cp := *t
			stuck = append(stuck, &cp)
		}
	}
	return stuck, nil
}

// transition applies mutate under the write lock after validating the move
// against the transition table. The record is untouched on any failure.
func (s *MemoryTradeStore) transition(id string, to model.TradeStatus, mutate func(t *model.Trade)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if !t.Status.CanTransitionTo(to) {
		return fmt.Errorf("trade %s: %s -> %s: %w", id, t.Status, to, ErrInvalidTransition)
	}
	t.Status = to
	if mutate != nil {
		mutate(t)
	}
	return nil
}

func (s *MemoryTradeStore) MarkExecuting(id string) error {
	return s.transition(id, model.TradeStatusExecutingSwap, nil)
}

func (s *MemoryTradeStore) MarkSwapCompleted(id, dexUsed, swapTxHash string, amountOut, executionPrice, slippage decimal.Decimal) error {
	return s.transition(id, model.TradeStatusSwapCompleted, func(t *model.Trade) {
		t.DEXUsed = dexUsed
		t.SwapTxHash = swapTxHash
		t.AmountOutActual = amountOut
		t.ExecutionPrice = executionPrice
		t.SlippageActual = slippage
		t.ExecutedAt = s.now()
	})
}

func (s *MemoryTradeStore) MarkSettlementInProgress(id string) error {
	return s.transition(id, model.TradeStatusSettlementInProgress, nil)
}

func (s *MemoryTradeStore) MarkCompleted(id, destinationTxHash string) error {
	return s.transition(id, model.TradeStatusCompleted, func(t *model.Trade) {
		t.DestinationTxHash = destinationTxHash
		t.CompletedAt = s.now()
	})
}

func (s *MemoryTradeStore) MarkFailed(id, errorMessage string) error {
	return s.transition(id, model.TradeStatusFailed, func(t *model.Trade) {
		t.ErrorMessage = errorMessage
		t.CompletedAt = s.now()
	})
}

// NewMemoryLedger wires the three in-memory stores.
func NewMemoryLedger() *Ledger {
	return &Ledger{
		Quotes:     NewMemoryQuoteStore(),
		Executions: NewMemoryExecutionStore(),
		Trades:     NewMemoryTradeStore(),
	}
}
