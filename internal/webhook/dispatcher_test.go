package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/events"
	"github.com/chigozirigeorge/omnixec/internal/ledger"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

func TestDispatcherProcessesEnqueuedPayloads(t *testing.T) {
	l := ledger.NewMemoryLedger()
	committedQuote(t, l, "q1")

	p := NewProcessor(l, NewMemoryDedupe(time.Hour), events.NopSink{}, zaptest.NewLogger(t))
	d := NewDispatcher(p, 16, 2, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	require.True(t, d.Enqueue(Payload{TransactionID: "0xtx1", QuoteID: "q1", Status: "success"}))

	require.Eventually(t, func() bool {
		q, err := l.Quotes.GetQuote("q1")
		return err == nil && q.Status == model.QuoteStatusExecuted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.Wait()
}

func TestDispatcherEnqueueFullQueue(t *testing.T) {
	l := ledger.NewMemoryLedger()
	p := NewProcessor(l, NewMemoryDedupe(time.Hour), events.NopSink{}, zaptest.NewLogger(t))

	// No workers started, so the queue only drains by capacity.
	d := NewDispatcher(p, 1, 1, zaptest.NewLogger(t))

	assert.True(t, d.Enqueue(Payload{TransactionID: "0xtx1", QuoteID: "q1", Status: "success"}))
	assert.False(t, d.Enqueue(Payload{TransactionID: "0xtx2", QuoteID: "q2", Status: "success"}))
}

func TestDispatcherKeepsRunningAfterProcessingError(t *testing.T) {
	l := ledger.NewMemoryLedger()
	committedQuote(t, l, "q1")

	p := NewProcessor(l, NewMemoryDedupe(time.Hour), events.NopSink{}, zaptest.NewLogger(t))
	d := NewDispatcher(p, 16, 1, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// The first payload references a quote that does not exist; its failure
	// must not take the worker down.
	require.True(t, d.Enqueue(Payload{TransactionID: "0xbad", QuoteID: "missing", Status: "success"}))
	require.True(t, d.Enqueue(Payload{TransactionID: "0xtx1", QuoteID: "q1", Status: "success"}))

	require.Eventually(t, func() bool {
		q, err := l.Quotes.GetQuote("q1")
		return err == nil && q.Status == model.QuoteStatusExecuted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.Wait()
}
