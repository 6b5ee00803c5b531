package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeStatusTransitions(t *testing.T) {
	forward := []TradeStatus{
		TradeStatusCreated,
		TradeStatusExecutingSwap,
		TradeStatusSwapCompleted,
		TradeStatusSettlementInProgress,
		TradeStatusCompleted,
	}

	for i, from := range forward[:len(forward)-1] {
		assert.True(t, from.CanTransitionTo(forward[i+1]),
			"%s -> %s should be legal", from, forward[i+1])
	}

	// No skipping forward and no moving backward.
	assert.False(t, TradeStatusCreated.CanTransitionTo(TradeStatusSwapCompleted))
	assert.False(t, TradeStatusExecutingSwap.CanTransitionTo(TradeStatusSettlementInProgress))
	assert.False(t, TradeStatusSwapCompleted.CanTransitionTo(TradeStatusExecutingSwap))
	assert.False(t, TradeStatusCompleted.CanTransitionTo(TradeStatusSettlementInProgress))
}

func TestTradeStatusFailedReachability(t *testing.T) {
	for _, from := range []TradeStatus{
		TradeStatusCreated,
		TradeStatusExecutingSwap,
		TradeStatusSwapCompleted,
		TradeStatusSettlementInProgress,
	} {
		assert.True(t, from.CanTransitionTo(TradeStatusFailed), "%s -> failed should be legal", from)
	}

	assert.False(t, TradeStatusCompleted.CanTransitionTo(TradeStatusFailed))
	assert.False(t, TradeStatusFailed.CanTransitionTo(TradeStatusFailed))
	assert.False(t, TradeStatusFailed.CanTransitionTo(TradeStatusCreated))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, TradeStatusCompleted.Terminal())
	assert.True(t, TradeStatusFailed.Terminal())
	assert.False(t, TradeStatusCreated.Terminal())
	assert.False(t, TradeStatusSettlementInProgress.Terminal())

	assert.True(t, QuoteStatusExecuted.Terminal())
	assert.True(t, QuoteStatusFailed.Terminal())
	assert.False(t, QuoteStatusPending.Terminal())
	assert.False(t, QuoteStatusCommitted.Terminal())
}
