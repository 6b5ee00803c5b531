package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
	"github.com/chigozirigeorge/omnixec/internal/quote"
)

// Committer is the commit half of the quote lifecycle; the matcher calls
// it when an observed payment satisfies a pending quote.
type Committer interface {
	Commit(ctx context.Context, quoteID, fundingTxHash string) (*model.Trade, error)
}

type expectation struct {
	quote *model.Quote
}

// QuoteMatcher indexes pending quotes by funding chain and matches
// observed payments against them by raw token amount. A matched or expired
// quote leaves the index; the ledger stays the source of truth for status.
type QuoteMatcher struct {
	mu        sync.Mutex
	pending   map[model.Chain]map[string]expectation // chain -> quoteID
	committer Committer
	logger    *zap.Logger
}

func NewQuoteMatcher(committer Committer, logger *zap.Logger) *QuoteMatcher {
	return &QuoteMatcher{
		pending:   make(map[model.Chain]map[string]expectation),
		committer: committer,
		logger:    logger.With(zap.String("component", "quote_matcher")),
	}
}

// Expect registers a freshly created quote for payment matching.
func (qm *QuoteMatcher) Expect(q *model.Quote) {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	byID, ok := qm.pending[q.FundingChain]
	if !ok {
		byID = make(map[string]expectation)
		qm.pending[q.FundingChain] = byID
	}
	byID[q.ID] = expectation{quote: q}
}

// PaymentObserved implements Handler. The first unexpired pending quote on
// the observation's chain whose raw funding amount matches is committed.
// The expectation leaves the index only once the commit succeeds or can
// never succeed; a transiently failed commit stays matchable, and the
// monitor re-observes the payment on its next pass because a failed range
// does not advance the cursor.
func (qm *QuoteMatcher) PaymentObserved(ctx context.Context, obs Observation) error {
	quoteID, ok := qm.match(obs)
	if !ok {
		qm.logger.Debug("Payment matched no pending quote",
			zap.String("tx_hash", obs.TxHash),
			zap.String("amount", obs.Amount.String()))
		return nil
	}

	if _, err := qm.committer.Commit(ctx, quoteID, obs.TxHash); err != nil {
		if errors.Is(err, ledger.ErrNotFound) ||
			errors.Is(err, ledger.ErrStatusConflict) ||
			errors.Is(err, quote.ErrQuoteExpired) {
			qm.remove(obs.Chain, quoteID)
		}
		return err
	}
	qm.remove(obs.Chain, quoteID)
	return nil
}

func (qm *QuoteMatcher) match(obs Observation) (string, bool) {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	now := time.Now()
	byID := qm.pending[obs.Chain]
	for id, exp := range byID {
		if exp.quote.IsExpired(now) {
			delete(byID, id)
			continue
		}
		if rawAmount(exp.quote).Equal(obs.Amount) {
			return id, true
		}
	}
	return "", false
}

func (qm *QuoteMatcher) remove(chain model.Chain, quoteID string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.pending[chain], quoteID)
}

// rawAmount converts the quote's funding amount to the token's smallest
// unit, which is what transfer logs carry.
func rawAmount(q *model.Quote) decimal.Decimal {
	return q.MaxFundingAmount.Shift(int32(q.FundingAsset.Decimals))
}
