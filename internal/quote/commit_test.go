package quote

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

func pendingQuote(t *testing.T, l *ledger.Ledger, expiresIn time.Duration) *model.Quote {
	q := &model.Quote{
		ID:               uuid.New().String(),
		UserID:           "user-1",
		FundingChain:     model.ChainEthereum,
		ExecutionChain:   model.ChainPolygon,
		FundingAsset:     testAsset("WETH", model.ChainEthereum),
		ExecutionAsset:   testAsset("WMATIC", model.ChainPolygon),
		MaxFundingAmount: decimal.NewFromInt(100),
		ExecutionCost:    decimal.NewFromFloat(49.85),
		ServiceFee:       decimal.NewFromFloat(0.3),
		PaymentAddress:   "0x1111111111111111111111111111111111111111",
		RecipientAddress: "0x3333333333333333333333333333333333333333",
		ExpiresAt:        time.Now().Add(expiresIn),
		Nonce:            uuid.New().String(),
		Status:           model.QuoteStatusPending,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, l.Quotes.CreateQuote(q))
	return q
}

func TestCommitCreatesTradeAndDispatches(t *testing.T) {
	l := ledger.NewMemoryLedger()

	var dispatched []string
	svc := NewCommitService(l, DispatchFunc(func(tradeID string) {
		dispatched = append(dispatched, tradeID)
	}), events.NopSink{}, zaptest.NewLogger(t))

	q := pendingQuote(t, l, 5*time.Minute)

	trade, err := svc.Commit(context.Background(), q.ID, "0xfunding")
	require.NoError(t, err)

	assert.Equal(t, q.ID, trade.QuoteID)
	assert.Equal(t, model.TradeStatusCreated, trade.Status)
	assert.Equal(t, model.ChainEthereum, trade.SourceChain)
	assert.Equal(t, model.ChainPolygon, trade.DestinationChain)
	assert.Equal(t, q.RecipientAddress, trade.DestinationAddress)
	// The tradable amount is the funding amount net of the service fee.
	assert.True(t, trade.AmountIn.Equal(decimal.NewFromFloat(99.7)), "amount_in %s", trade.AmountIn)
	assert.True(t, trade.AmountOutExpected.Equal(q.ExecutionCost))

	stored, err := l.Quotes.GetQuote(q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusCommitted, stored.Status)

	exec, err := l.Executions.GetExecution(q.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xfunding", exec.TransactionHash)
	assert.Equal(t, "confirming", exec.Status)

	require.Equal(t, []string{trade.ID}, dispatched)
}

func TestCommitExpiredQuote(t *testing.T) {
	l := ledger.NewMemoryLedger()
	svc := NewCommitService(l, DispatchFunc(func(string) {}), events.NopSink{}, zaptest.NewLogger(t))

	q := pendingQuote(t, l, -time.Second)

	_, err := svc.Commit(context.Background(), q.ID, "0xfunding")
	assert.ErrorIs(t, err, ErrQuoteExpired)

	// Refusal happens before any state change.
	stored, getErr := l.Quotes.GetQuote(q.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.QuoteStatusPending, stored.Status)
	_, execErr := l.Executions.GetExecution(q.ID)
	assert.ErrorIs(t, execErr, ledger.ErrNotFound)
}

func TestCommitTwiceConflicts(t *testing.T) {
	l := ledger.NewMemoryLedger()
	svc := NewCommitService(l, DispatchFunc(func(string) {}), events.NopSink{}, zaptest.NewLogger(t))

	q := pendingQuote(t, l, 5*time.Minute)

	_, err := svc.Commit(context.Background(), q.ID, "0xfunding")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), q.ID, "0xother")
	assert.ErrorIs(t, err, ledger.ErrStatusConflict)
}

func TestCommitUnknownQuote(t *testing.T) {
	l := ledger.NewMemoryLedger()
	svc := NewCommitService(l, DispatchFunc(func(string) {}), events.NopSink{}, zaptest.NewLogger(t))

	_, err := svc.Commit(context.Background(), uuid.New().String(), "0xfunding")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
