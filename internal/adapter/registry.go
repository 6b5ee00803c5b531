package adapter

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/model"
)

// Registry holds the registered DEX adapters keyed by name. Contents change
// rarely (registration happens at startup) relative to lookups, so reads
// take the shared lock. Registration order is preserved because it is the
// deterministic tie-break for adapter selection.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger.With(zap.String("component", "adapter_registry")),
	}
}

// Register adds or replaces an adapter under its name.
func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = a
	r.logger.Info("Registered DEX adapter", zap.String("adapter", name))
}

// Get returns the adapter registered under name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	return a, ok
}

// ListAvailable returns the names of adapters that support chain and pass
// their liveness probe, in registration order. An adapter failing either
// check is silently excluded; unavailability is not an error.
func (r *Registry) ListAvailable(ctx context.Context, chain model.Chain) []string {
	names := make([]string, 0)
	for _, a := range r.AllAvailable(ctx, chain) {
		names = append(names, a.Name())
	}
	return names
}

// AllAvailable returns the adapters that support chain and are live, in
// registration order.
func (r *Registry) AllAvailable(ctx context.Context, chain model.Chain) []Adapter {
	r.mu.RLock()
	ordered := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		ordered = append(ordered, r.adapters[name])
	}
	r.mu.RUnlock()

	// Probes run outside the lock; they may hit the network.
	available := make([]Adapter, 0, len(ordered))
	for _, a := range ordered {
		if !supportsChain(a, chain) {
			continue
		}
		if !a.IsAvailable(ctx) {
			r.logger.Debug("Adapter excluded by liveness probe",
				zap.String("adapter", a.Name()),
				zap.String("chain", chain.String()))
			continue
		}
		available = append(available, a)
	}
	return available
}

func supportsChain(a Adapter, chain model.Chain) bool {
	for _, c := range a.SupportedChains() {
		if c == chain {
			return true
		}
	}
	return false
}
