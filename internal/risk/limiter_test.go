package risk

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

func newTestLimiter(t *testing.T, limit int64) *Limiter {
	return NewLimiter(map[model.Chain]decimal.Decimal{
		model.ChainEthereum: decimal.NewFromInt(limit),
	}, zaptest.NewLogger(t))
}

func TestCheckAndRecord(t *testing.T) {
	l := newTestLimiter(t, 1000)

	remaining, err := l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.True(t, remaining.Equal(decimal.NewFromInt(600)))

	remaining, err = l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(600))
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
}

func TestCheckAndRecordViolationDoesNotRecord(t *testing.T) {
	l := newTestLimiter(t, 1000)

	_, err := l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(900))
	require.NoError(t, err)

	_, err = l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(200))
	require.Error(t, err)

	var limitErr *LimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, model.ChainEthereum, limitErr.Chain)
	assert.True(t, limitErr.Remaining.Equal(decimal.NewFromInt(100)))

	// The rejected amount must not count against the window.
	assert.True(t, l.Spent(model.ChainEthereum).Equal(decimal.NewFromInt(900)))

	// Headroom is still usable after a rejection.
	_, err = l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(100))
	require.NoError(t, err)
}

func TestCheckAndRecordUnconfiguredChain(t *testing.T) {
	l := newTestLimiter(t, 1000)

	_, err := l.CheckAndRecord(model.ChainBSC, decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestWindowReset(t *testing.T) {
	l := newTestLimiter(t, 1000)

	now := time.Now()
	l.now = func() time.Time { return now }

	_, err := l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(900))
	require.NoError(t, err)

	// Inside the window the limit still binds.
	now = now.Add(23 * time.Hour)
	_, err = l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(900))
	require.Error(t, err)

	// Past the window the counter resets and the same spend is admitted.
	now = now.Add(2 * time.Hour)
	remaining, err := l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(900))
	require.NoError(t, err)
	assert.True(t, remaining.Equal(decimal.NewFromInt(100)))
	assert.True(t, l.Spent(model.ChainEthereum).Equal(decimal.NewFromInt(900)))
}

func TestConcurrentAdmissionsNeverOvershoot(t *testing.T) {
	l := newTestLimiter(t, 1000)

	var wg sync.WaitGroup
	admitted := make(chan decimal.Decimal, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.CheckAndRecord(model.ChainEthereum, decimal.NewFromInt(25)); err == nil {
				admitted <- decimal.NewFromInt(25)
			}
		}()
	}
	wg.Wait()
	close(admitted)

	total := decimal.Zero
	for amount := range admitted {
		total = total.Add(amount)
	}
	assert.True(t, total.LessThanOrEqual(decimal.NewFromInt(1000)),
		"admitted %s over a limit of 1000", total)
	assert.True(t, l.Spent(model.ChainEthereum).Equal(total))
}
