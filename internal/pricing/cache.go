package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// CachedPrice is the last-seen price/confidence for an (asset, chain) pair.
type CachedPrice struct {
	Price      decimal.Decimal
	Confidence float64
	Timestamp  time.Time
}

// Cache is a short-TTL in-memory price cache that decouples quote latency
// from live oracle calls. Staleness is a read-time predicate: Get treats an
// entry older than the validity window as a miss even though the value is
// still physically present. CleanupExpired bounds memory by removing
// entries past the (longer) retention TTL.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]CachedPrice
	validity  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewCache(validity, retention time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		entries:   make(map[string]CachedPrice),
		validity:  validity,
		retention: retention,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "price_cache")),
	}
}

func cacheKey(symbol string, chain model.Chain) string {
	return string(chain) + ":" + symbol
}

// Get returns the cached price for (symbol, chain), or ok=false on a miss
// or a stale entry.
func (c *Cache) Get(symbol string, chain model.Chain) (CachedPrice, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(symbol, chain)]
	c.mu.RUnlock()

	if !ok {
		return CachedPrice{}, false
	}
	if c.now().Sub(entry.Timestamp) >= c.validity {
		return CachedPrice{}, false
	}
	return entry, true
}

// Set unconditionally overwrites the entry for (symbol, chain).
func (c *Cache) Set(symbol string, chain model.Chain, price decimal.Decimal, confidence float64) {
	c.mu.Lock()
	c.entries[cacheKey(symbol, chain)] = CachedPrice{
		Price:      price,
		Confidence: confidence,
		Timestamp:  c.now(),
	}
	c.mu.Unlock()
}

// CleanupExpired removes entries older than the retention TTL and returns
// how many were removed. Safe to call concurrently with reads and writes.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) >= c.retention {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs CleanupExpired on interval until ctx is done.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.CleanupExpired(); removed > 0 {
				c.logger.Debug("Swept expired price entries", zap.Int("removed", removed))
			}
		}
	}
}
