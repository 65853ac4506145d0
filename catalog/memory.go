package catalog

import (
	"context"
	"sync"

	"github.com/hupe1980/toolmesh/core"
)

// MemoryResolver is a naive process‑local Registry. Entries keep their
// registration order; re-registering a name replaces the entry in place.
//
// Concurrency: protected by RWMutex.
// Search: keyword scoring over names and descriptions. Suitable for tests,
// demos and small static catalogs; use a vector index behind RemoteResolver
// for semantic retrieval.
type MemoryResolver struct {
	mu    sync.RWMutex
	order []string
	defs  map[string]core.ToolDefinition
}

// NewMemoryResolver creates a resolver pre-populated with defs.
func NewMemoryResolver(defs ...core.ToolDefinition) *MemoryResolver {
	m := &MemoryResolver{defs: make(map[string]core.ToolDefinition, len(defs))}
	_ = m.Register(context.Background(), defs...)
	return m
}

// Register adds or replaces definitions.
func (m *MemoryResolver) Register(_ context.Context, defs ...core.ToolDefinition) error {
	for _, d := range defs {
		if d.Name == "" {
			return ErrInvalidName
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range defs {
		if _, exists := m.defs[d.Name]; !exists {
			m.order = append(m.order, d.Name)
		}
		m.defs[d.Name] = d
	}
	return nil
}

// Delete removes a definition by name.
func (m *MemoryResolver) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.defs[name]; !exists {
		return ErrNotFound
	}
	delete(m.defs, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns every definition in registration order.
func (m *MemoryResolver) List(_ context.Context) ([]core.ToolDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.ToolDefinition, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.defs[n])
	}
	return out, nil
}

// Resolve implements Resolver.
func (m *MemoryResolver) Resolve(ctx context.Context, query string, limit int) ([]core.ToolDefinition, error) {
	all, _ := m.List(ctx)
	return rank(all, query, limit), nil
}
