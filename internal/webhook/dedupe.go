package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeStore remembers webhook delivery ids so exact duplicates can be
// skipped cheaply. It is an optimization in front of the ledger's guarded
// transitions, not the correctness mechanism. Ids are marked only after a
// delivery has been fully processed; a delivery whose processing failed
// stays unmarked so the sender's retransmission is processed again.
type DedupeStore interface {
	// Seen reports whether id was already processed.
	Seen(ctx context.Context, id string) (bool, error)
	// Mark records id as processed.
	Mark(ctx context.Context, id string) error
}

// MemoryDedupe is the single-instance DedupeStore.
type MemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func NewMemoryDedupe(ttl time.Duration) *MemoryDedupe {
	return &MemoryDedupe{seen: make(map[string]time.Time), ttl: ttl}
}

func (m *MemoryDedupe) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.seen[id]
	return ok && time.Since(at) < m.ttl, nil
}

func (m *MemoryDedupe) Mark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.seen[id] = now

	// Opportunistic prune keeps the map bounded without a sweeper.
	if len(m.seen) > 10000 {
		for key, at := range m.seen {
			if now.Sub(at) >= m.ttl {
				delete(m.seen, key)
			}
		}
	}
	return nil
}

// RedisDedupe shares delivery ids across coordinator instances.
type RedisDedupe struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDedupe(client *redis.Client, prefix string, ttl time.Duration) *RedisDedupe {
	return &RedisDedupe{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDedupe) Seen(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisDedupe) Mark(ctx context.Context, id string) error {
	return r.client.Set(ctx, r.prefix+id, 1, r.ttl).Err()
}
