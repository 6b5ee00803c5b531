package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// SettlementDispatcher hands a committed trade off for asynchronous
// settlement. The call must not block on settlement work.
type SettlementDispatcher interface {
	Dispatch(tradeID string)
}

// DispatchFunc adapts a function to the SettlementDispatcher interface.
type DispatchFunc func(tradeID string)

func (f DispatchFunc) Dispatch(tradeID string) { f(tradeID) }

// CommitService turns a funded quote into a trade. Called by the funding
// monitor (or commit endpoint) once payment matching the quote's nonce and
// payment address has been observed on chain.
type CommitService struct {
	ledger     *ledger.Ledger
	dispatcher SettlementDispatcher
	sink       events.Sink
	now        func() time.Time
	logger     *zap.Logger
}

func NewCommitService(l *ledger.Ledger, dispatcher SettlementDispatcher, sink events.Sink, logger *zap.Logger) *CommitService {
	return &CommitService{
		ledger:     l,
		dispatcher: dispatcher,
		sink:       sink,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "commit_service")),
	}
}

// Commit transitions the quote Pending -> Committed, records the funding
// transaction, creates the execution-facing trade and dispatches the
// settlement saga. Expired quotes are refused before any state changes.
func (s *CommitService) Commit(ctx context.Context, quoteID, fundingTxHash string) (*model.Trade, error) {
	q, err := s.ledger.Quotes.GetQuote(quoteID)
	if err != nil {
		return nil, err
	}
	if q.IsExpired(s.now()) {
		return nil, fmt.Errorf("quote %s: %w", quoteID, ErrQuoteExpired)
	}

	if err := s.ledger.Quotes.TransitionQuote(quoteID, model.QuoteStatusPending, model.QuoteStatusCommitted); err != nil {
		return nil, err
	}

	if err := s.ledger.Executions.UpsertExecution(model.Execution{
		QuoteID:         quoteID,
		TransactionHash: fundingTxHash,
		Status:          "confirming",
	}); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	trade := &model.Trade{
		ID:                 uuid.New().String(),
		QuoteID:            q.ID,
		UserID:             q.UserID,
		SourceChain:        q.FundingChain,
		DestinationChain:   q.ExecutionChain,
		DestinationAddress: q.RecipientAddress,
		AssetIn:            q.FundingAsset,
		AssetOut:           q.ExecutionAsset,
		AmountIn:           q.MaxFundingAmount.Sub(q.ServiceFee),
		AmountOutExpected:  q.ExecutionCost,
		Status:             model.TradeStatusCreated,
		CreatedAt:          s.now(),
	}
	if err := s.ledger.Trades.CreateTrade(trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	s.sink.Publish(events.Event{
		Type:      events.TypeQuoteCommitted,
		QuoteID:   q.ID,
		TradeID:   trade.ID,
		TxHash:    fundingTxHash,
		Timestamp: s.now(),
	})

	s.logger.Info("Committed quote",
		zap.String("quote_id", q.ID),
		zap.String("trade_id", trade.ID),
		zap.String("funding_tx", fundingTxHash))

	s.dispatcher.Dispatch(trade.ID)
	return trade, nil
}
