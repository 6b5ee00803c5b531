package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// DefaultWindow is the rolling window over which per-chain spending is
// capped.
const DefaultWindow = 24 * time.Hour

// LimitExceededError is returned when an admission would push a chain's
// window spending over its limit. It carries the remaining headroom so the
// caller can react (e.g. offer a smaller quote).
type LimitExceededError struct {
	Chain     model.Chain
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("risk control violation on %s: requested %s exceeds remaining limit %s",
		e.Chain, e.Requested, e.Remaining)
}

type window struct {
	spent     decimal.Decimal
	lastReset time.Time
}

// Limiter enforces a per-chain sliding-window spend limit. The check and
// the increment happen in one critical section so two concurrent trades
// cannot jointly overshoot the limit.
type Limiter struct {
	mu      sync.Mutex
	windows map[model.Chain]*window
	limits  map[model.Chain]decimal.Decimal
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewLimiter(limits map[model.Chain]decimal.Decimal, logger *zap.Logger) *Limiter {
	return &Limiter{
		windows: make(map[model.Chain]*window),
		limits:  limits,
		window:  DefaultWindow,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "risk_limiter")),
	}
}

// CheckAndRecord admits amount against chain's window limit and records it,
// returning the remaining headroom. On violation nothing is recorded and a
// *LimitExceededError is returned. The window resets lazily: if more than
// one window elapsed since the last reset, the counter is zeroed and the
// marker moves to now (one reset per stale window, not compounding).
func (l *Limiter) CheckAndRecord(chain model.Chain, amount decimal.Decimal) (decimal.Decimal, error) {
	limit, ok := l.limits[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("no spending limit configured for chain %s", chain)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[chain]
	if !ok {
		w = &window{spent: decimal.Zero, lastReset: now}
		l.windows[chain] = w
	}

	if now.Sub(w.lastReset) > l.window {
		w.spent = decimal.Zero
		w.lastReset = now
	}

	next := w.spent.Add(amount)
	if next.GreaterThan(limit) {
		remaining := limit.Sub(w.spent)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		return decimal.Zero, &LimitExceededError{Chain: chain, Requested: amount, Remaining: remaining}
	}

	w.spent = next
	remaining := limit.Sub(next)
	l.logger.Debug("Recorded spending",
		zap.String("chain", chain.String()),
		zap.String("amount", amount.String()),
		zap.String("remaining", remaining.String()))
	return remaining, nil
}

// Spent returns the amount recorded in chain's current window.
func (l *Limiter) Spent(chain model.Chain) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[chain]; ok {
		return w.spent
	}
	return decimal.Zero
}
