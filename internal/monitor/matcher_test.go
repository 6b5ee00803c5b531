package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

type fakeCommitter struct {
	commits map[string]string // quoteID -> tx hash
	err     error
}

func (f *fakeCommitter) Commit(_ context.Context, quoteID, fundingTxHash string) (*model.Trade, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.commits == nil {
		f.commits = make(map[string]string)
	}
	f.commits[quoteID] = fundingTxHash
	return &model.Trade{ID: "t-" + quoteID, QuoteID: quoteID}, nil
}

func pendingQuote(id string, amount int64, expiresIn time.Duration) *model.Quote {
	return &model.Quote{
		ID:               id,
		FundingChain:     model.ChainEthereum,
		FundingAsset:     model.AssetInfo{Chain: model.ChainEthereum, Symbol: "USDC", Decimals: 6},
		MaxFundingAmount: decimal.NewFromInt(amount),
		ExpiresAt:        time.Now().Add(expiresIn),
		Status:           model.QuoteStatusPending,
	}
}

func observation(chain model.Chain, rawAmount int64) Observation {
	return Observation{
		Chain:  chain,
		TxHash: "0xpay",
		From:   "0xsender",
		Token:  "0xusdc",
		Amount: decimal.NewFromInt(rawAmount),
	}
}

func TestMatcherCommitsOnAmountMatch(t *testing.T) {
	committer := &fakeCommitter{}
	qm := NewQuoteMatcher(committer, zaptest.NewLogger(t))

	qm.Expect(pendingQuote("q1", 100, 5*time.Minute))

	// 100 USDC with 6 decimals arrives as 100000000 in the transfer log.
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Equal(t, "0xpay", committer.commits["q1"])

	// A matched quote leaves the index; the same payment cannot commit twice.
	committer.commits = map[string]string{}
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Empty(t, committer.commits)
}

func TestMatcherIgnoresWrongAmountAndChain(t *testing.T) {
	committer := &fakeCommitter{}
	qm := NewQuoteMatcher(committer, zaptest.NewLogger(t))

	qm.Expect(pendingQuote("q1", 100, 5*time.Minute))

	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 99_000_000)))
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainPolygon, 100_000_000)))
	assert.Empty(t, committer.commits)

	// The quote is still pending and matchable afterwards.
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Equal(t, "0xpay", committer.commits["q1"])
}

func TestMatcherKeepsQuoteMatchableAfterTransientCommitFailure(t *testing.T) {
	committer := &fakeCommitter{err: errors.New("connection reset")}
	qm := NewQuoteMatcher(committer, zaptest.NewLogger(t))

	qm.Expect(pendingQuote("q1", 100, 5*time.Minute))

	err := qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000))
	require.Error(t, err)
	assert.Empty(t, committer.commits)

	// The ledger recovers; re-observing the same payment commits the quote.
	committer.err = nil
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Equal(t, "0xpay", committer.commits["q1"])
}

func TestMatcherDropsQuoteThatCanNeverCommit(t *testing.T) {
	committer := &fakeCommitter{err: ledger.ErrStatusConflict}
	qm := NewQuoteMatcher(committer, zaptest.NewLogger(t))

	qm.Expect(pendingQuote("q1", 100, 5*time.Minute))

	err := qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000))
	require.ErrorIs(t, err, ledger.ErrStatusConflict)

	// The conflicted quote left the index; nothing matches anymore.
	committer.err = nil
	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Empty(t, committer.commits)
}

func TestMatcherPrunesExpiredQuotes(t *testing.T) {
	committer := &fakeCommitter{}
	qm := NewQuoteMatcher(committer, zaptest.NewLogger(t))

	qm.Expect(pendingQuote("q-expired", 100, -time.Second))

	require.NoError(t, qm.PaymentObserved(context.Background(), observation(model.ChainEthereum, 100_000_000)))
	assert.Empty(t, committer.commits, "expired quote must never be committed")
}
